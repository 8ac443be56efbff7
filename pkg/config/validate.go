package config

import (
	"fmt"
	"strings"
)

// ValidateCore checks the settings the portal cannot run without.
func (c *Config) ValidateCore() error {
	var missing []string

	if strings.TrimSpace(c.Database.URL) == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if strings.TrimSpace(c.Redis.Addr) == "" {
		missing = append(missing, "REDIS_ADDR")
	}
	if strings.TrimSpace(c.Server.Port) == "" {
		missing = append(missing, "SERVER_PORT")
	}
	if strings.TrimSpace(c.JWT.Secret) == "" || c.JWT.Secret == "change-this-secret" {
		missing = append(missing, "JWT_SECRET")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ValidateSAP checks the settings the SAP sync path cannot run without.
func (c *Config) ValidateSAP() error {
	var missing []string

	if strings.TrimSpace(c.SAP.BaseURL) == "" {
		missing = append(missing, "SAP_SERVICE_LAYER_URL")
	}
	if strings.TrimSpace(c.SAP.CompanyDB) == "" {
		missing = append(missing, "SAP_COMPANY_DB")
	}
	if strings.TrimSpace(c.SAP.Username) == "" {
		missing = append(missing, "SAP_USERNAME")
	}
	if strings.TrimSpace(c.SAP.Password) == "" {
		missing = append(missing, "SAP_PASSWORD")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required SAP configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}
