package client

import (
	"context"

	"go.opentelemetry.io/otel"
)

// Product is one row of the protected demo catalog.
type Product struct {
	ID       int     `json:"id"`
	Name     string  `json:"nombre"`
	Price    float64 `json:"precio"`
	Category string  `json:"categoria"`
}

// DataPage is the protected demo data payload.
type DataPage struct {
	Message   string    `json:"mensaje"`
	User      string    `json:"usuario"`
	Products  []Product `json:"productos"`
	Timestamp int64     `json:"timestamp"`
}

// DashboardMetrics are the demo dashboard figures.
type DashboardMetrics struct {
	ActiveUsers  int     `json:"usuariosActivos"`
	MonthlySales float64 `json:"ventasMensuales"`
	OpenTickets  int     `json:"ticketsAbiertos"`
	Satisfaction float64 `json:"satisfaccion"`
}

// DashboardPage is the protected dashboard payload.
type DashboardPage struct {
	Metrics   DashboardMetrics `json:"metricas"`
	Timestamp int64            `json:"timestamp"`
}

// Data retrieves the protected demo data. Authorization failures follow
// the same rules as FetchUserInfo.
func (c *Client) Data(ctx context.Context) (*DataPage, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "Client.Data()")
	defer span.End()

	page := &DataPage{}
	if err := c.authzGet(ctx, "/data", page); err != nil {
		return nil, err
	}

	return page, nil
}

// Dashboard retrieves the protected dashboard metrics.
func (c *Client) Dashboard(ctx context.Context) (*DashboardPage, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "Client.Dashboard()")
	defer span.End()

	page := &DashboardPage{}
	if err := c.authzGet(ctx, "/data/dashboard", page); err != nil {
		return nil, err
	}

	return page, nil
}
