package server

import (
	"context"
	"net/http"
	"time"

	"github.com/cccteam/httpio"
	"github.com/guardteam/authgate/permission"
	"go.opentelemetry.io/otel"
)

// Product is a demo record served by the protected data endpoint.
type Product struct {
	ID       int     `json:"id"`
	Name     string  `json:"nombre"`
	Price    float64 `json:"precio"`
	Category string  `json:"categoria"`
}

// Data serves the protected demo product list. It requires the USUARIOS
// read permission.
func (s *Server) Data() http.HandlerFunc {
	type response struct {
		Message   string    `json:"mensaje"`
		User      string    `json:"usuario"`
		Products  []Product `json:"productos"`
		Timestamp int64     `json:"timestamp"`
	}

	return s.handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx, span := otel.Tracer(name).Start(r.Context(), "Server.Data()")
		defer span.End()

		info, err := s.requirePermission(ctx, permission.Criteria{Codes: []string{"USUARIOS_LEER"}})
		if err != nil {
			return httpio.NewEncoder(w).ClientMessage(ctx, err)
		}

		return httpio.NewEncoder(w).Ok(response{
			Message: "Datos protegidos obtenidos exitosamente",
			User:    info.Email,
			Products: []Product{
				{ID: 1, Name: "Producto A", Price: 29.99, Category: "Electrónicos"},
				{ID: 2, Name: "Producto B", Price: 19.99, Category: "Hogar"},
				{ID: 3, Name: "Producto C", Price: 39.99, Category: "Deportes"},
			},
			Timestamp: time.Now().UnixMilli(),
		})
	})
}

// Dashboard serves the demo dashboard metrics. It requires the DASHBOARD
// read permission.
func (s *Server) Dashboard() http.HandlerFunc {
	type metrics struct {
		ActiveUsers  int     `json:"usuariosActivos"`
		MonthlySales float64 `json:"ventasMensuales"`
		OpenTickets  int     `json:"ticketsAbiertos"`
		Satisfaction float64 `json:"satisfaccion"`
	}
	type response struct {
		Metrics   metrics `json:"metricas"`
		Timestamp int64   `json:"timestamp"`
	}

	return s.handle(func(w http.ResponseWriter, r *http.Request) error {
		ctx, span := otel.Tracer(name).Start(r.Context(), "Server.Dashboard()")
		defer span.End()

		if _, err := s.requirePermission(ctx, permission.Criteria{Module: "DASHBOARD", Action: "LEER"}); err != nil {
			return httpio.NewEncoder(w).ClientMessage(ctx, err)
		}

		return httpio.NewEncoder(w).Ok(response{
			Metrics: metrics{
				ActiveUsers:  1247,
				MonthlySales: 89432.50,
				OpenTickets:  23,
				Satisfaction: 4.6,
			},
			Timestamp: time.Now().UnixMilli(),
		})
	})
}

// requirePermission resolves the caller's profile and evaluates criteria
// against it, returning a Forbidden error on denial.
func (s *Server) requirePermission(ctx context.Context, criteria permission.Criteria) (*permission.UserInfo, error) {
	info, err := s.resolveUserInfo(ctx)
	if err != nil {
		return nil, err
	}
	if !info.Set().Evaluate(criteria) {
		return nil, httpio.NewForbiddenMessage("No tienes permisos para acceder a este recurso")
	}

	return info, nil
}
