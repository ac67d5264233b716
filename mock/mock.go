// Package mock is used to generate mock files for testing.
package mock

//go:generate mockgen -source ../internal/azureoidc/azureoidc_iface.go -destination mock_azureoidc/mock_azureoidc_iface.go
