// Package validation checks at startup that the backing services an operator
// marked as required are reachable.
package validation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/zfogg/vlogbook/backend/internal/logger"
	"go.uber.org/zap"
)

// Check probes one service
type Check func(ctx context.Context) error

// ServiceValidator runs the checks for required services
type ServiceValidator struct {
	requiredServices []string
	checks           map[string]Check
	timeout          time.Duration
}

// NewServiceValidator creates a validator for the named services
func NewServiceValidator(required []string, checks map[string]Check) *ServiceValidator {
	names := make([]string, 0, len(required))
	for _, name := range required {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			names = append(names, name)
		}
	}
	return &ServiceValidator{requiredServices: names, checks: checks, timeout: 10 * time.Second}
}

// ValidateServices fails on the first required service that is unknown or unreachable
func (sv *ServiceValidator) ValidateServices(ctx context.Context) error {
	if len(sv.requiredServices) == 0 {
		logger.Log.Info("No required services configured for validation")
		return nil
	}

	logger.Log.Info("Validating required services", zap.Strings("services", sv.requiredServices))

	for _, name := range sv.requiredServices {
		check, ok := sv.checks[name]
		if !ok {
			return fmt.Errorf("unknown required service %q (known: %s)", name, strings.Join(sv.Known(), ", "))
		}

		timeoutCtx, cancel := context.WithTimeout(ctx, sv.timeout)
		err := check(timeoutCtx)
		cancel()
		if err != nil {
			logger.ErrorWithFields("Required service validation failed", err, zap.String("service", name))
			return fmt.Errorf("required service %q validation failed: %w", name, err)
		}

		logger.Log.Info("Service validated successfully", zap.String("service", name))
	}

	logger.Log.Info("All required services validated successfully")
	return nil
}

// Known lists the services that have a check, sorted
func (sv *ServiceValidator) Known() []string {
	names := make([]string, 0, len(sv.checks))
	for name := range sv.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
