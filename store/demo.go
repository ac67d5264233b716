package store

import (
	"context"

	"github.com/guardteam/authgate/permission"
)

// SeedDemo loads the demo catalog: the permission list, three profiles
// with their directory-group mappings, and two local accounts. It is used
// by the demo binaries and the test suites.
func SeedDemo(m *Memory) error {
	perms := []permission.Permission{
		{Code: "USUARIOS_LEER", Name: "Leer usuarios", Module: "USUARIOS", Action: "LEER", Description: "Ver el listado de usuarios"},
		{Code: "USUARIOS_CREAR", Name: "Crear usuarios", Module: "USUARIOS", Action: "CREAR", Description: "Dar de alta usuarios"},
		{Code: "USUARIOS_EDITAR", Name: "Editar usuarios", Module: "USUARIOS", Action: "EDITAR", Description: "Modificar usuarios"},
		{Code: "USUARIOS_ELIMINAR", Name: "Eliminar usuarios", Module: "USUARIOS", Action: "ELIMINAR", Description: "Dar de baja usuarios"},
		{Code: "REPORTES_LEER", Name: "Leer reportes", Module: "REPORTES", Action: "LEER", Description: "Consultar reportes"},
		{Code: "REPORTES_CREAR", Name: "Crear reportes", Module: "REPORTES", Action: "CREAR", Description: "Generar reportes"},
		{Code: "REPORTES_EXPORTAR", Name: "Exportar reportes", Module: "REPORTES", Action: "EXPORTAR", Description: "Exportar reportes"},
		{Code: "CONFIG_LEER", Name: "Leer configuración", Module: "CONFIGURACION", Action: "LEER", Description: "Ver la configuración del sistema"},
		{Code: "CONFIG_EDITAR", Name: "Editar configuración", Module: "CONFIGURACION", Action: "EDITAR", Description: "Modificar la configuración del sistema"},
		{Code: "DASHBOARD_LEER", Name: "Ver dashboard", Module: "DASHBOARD", Action: "LEER", Description: "Acceder al dashboard"},
		{Code: "DASHBOARD_ADMIN", Name: "Dashboard administrativo", Module: "DASHBOARD", Action: "ADMIN", Description: "Acceder al dashboard administrativo"},
		{Code: "PERFILES_LEER", Name: "Leer perfiles", Module: "PERFILES", Action: "LEER", Description: "Ver perfiles"},
		{Code: "PERFILES_CREAR", Name: "Crear perfiles", Module: "PERFILES", Action: "CREAR", Description: "Crear perfiles"},
		{Code: "PERFILES_EDITAR", Name: "Editar perfiles", Module: "PERFILES", Action: "EDITAR", Description: "Modificar perfiles"},
		{Code: "PERFILES_ELIMINAR", Name: "Eliminar perfiles", Module: "PERFILES", Action: "ELIMINAR", Description: "Eliminar perfiles"},
	}
	for _, p := range perms {
		m.AddPermission(p)
	}

	m.AddProfile(permission.Profile{
		ID: 1, Name: "Administrador", Description: "Acceso completo al sistema",
		GroupID: "9f0b2c7e-admin-group", GroupName: "APP-Administradores",
	},
		"USUARIOS_LEER", "USUARIOS_CREAR", "USUARIOS_EDITAR", "USUARIOS_ELIMINAR",
		"REPORTES_LEER", "REPORTES_CREAR", "REPORTES_EXPORTAR",
		"CONFIG_LEER", "CONFIG_EDITAR",
		"DASHBOARD_LEER", "DASHBOARD_ADMIN",
		"PERFILES_LEER", "PERFILES_CREAR", "PERFILES_EDITAR", "PERFILES_ELIMINAR",
	)
	m.AddProfile(permission.Profile{
		ID: 2, Name: "Gestor", Description: "Gestión de usuarios y reportes",
		GroupID: "4c1d8a2b-gestor-group", GroupName: "APP-Gestores",
	},
		"USUARIOS_LEER", "USUARIOS_CREAR", "USUARIOS_EDITAR",
		"REPORTES_LEER", "REPORTES_CREAR",
		"DASHBOARD_LEER", "PERFILES_LEER",
	)
	m.AddProfile(permission.Profile{
		ID: 3, Name: "Usuario Básico", Description: "Acceso de solo lectura",
		GroupID: DefaultGroupID, GroupName: "APP-Usuarios",
	},
		"USUARIOS_LEER", "DASHBOARD_LEER",
	)

	if _, err := m.AddUser("admin@test.com", "Administrador Local", "admin123"); err != nil {
		return err
	}
	if _, err := m.AddUser("usuario@test.com", "Usuario Local", "user123"); err != nil {
		return err
	}

	if err := m.SetAuthFlags(context.Background(), AuthFlags{LocalJWTEnabled: true}); err != nil {
		return err
	}

	return nil
}
