// internal/orchestrator/dispatch/router.go
package dispatch

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"smartport-assistant/internal/common/errors"
	"smartport-assistant/internal/common/logger"
	"smartport-assistant/internal/common/metrics"
	"smartport-assistant/internal/models"
	"smartport-assistant/pkg/registry"
)

// Router resolves an intent against the capability registry and runs the
// bound handler. It is the single catch boundary of the pipeline: whatever
// a capability does, Dispatch returns a well-formed outcome.
type Router struct {
	config   *Config
	registry *registry.Registry
	logger   logger.Logger
}

func NewRouter(config *Config, reg *registry.Registry, log logger.Logger) *Router {
	if config == nil {
		config = LoadConfig()
	}
	return &Router{
		config:   config,
		registry: reg,
		logger: log.WithFields(map[string]interface{}{
			"component": "dispatch_router",
		}),
	}
}

// Dispatch routes one invocation. A registry gap is a first-class
// NotImplemented outcome, not an error; a binding without a callable is a
// configuration defect reported as a routed failure so the turn still
// completes.
func (r *Router) Dispatch(ctx context.Context, inv *registry.Invocation) *models.DispatchOutcome {
	intent := inv.Intent
	if intent.IsMeta() {
		return models.MetaHandled(intent)
	}

	binding, ok := r.registry.Resolve(intent)
	if !ok {
		r.logger.Info("no capability registered", map[string]interface{}{
			"intent":   intent.String(),
			"trace_id": inv.TraceID,
		})
		return models.NotImplemented(intent)
	}

	if binding.Capability == nil {
		err := errors.NewConfigDefectError(
			fmt.Sprintf("binding '%s' for intent '%s' has no callable", binding.Name, intent),
		)
		r.logger.Error("capability binding has no callable", map[string]interface{}{
			"intent":   intent.String(),
			"handler":  binding.Name,
			"trace_id": inv.TraceID,
		})
		kind := errors.FailureKind(err)
		metrics.HandlerFailures.WithLabelValues(binding.Name, kind).Inc()
		return models.RoutedFailure(intent, binding.Name, err, kind)
	}

	result, err := r.execute(ctx, binding, inv)
	if err != nil {
		kind := errors.FailureKind(err)
		r.logger.WithError(err).Error("capability execution failed", map[string]interface{}{
			"intent":   intent.String(),
			"handler":  binding.Name,
			"kind":     kind,
			"trace_id": inv.TraceID,
		})
		metrics.HandlerFailures.WithLabelValues(binding.Name, kind).Inc()
		return models.RoutedFailure(intent, binding.Name, err, kind)
	}

	return models.Routed(intent, binding.Name, result)
}

// execute runs the capability under the handler timeout with the pipeline's
// only recover boundary. A panic becomes an internal error; a raw deadline
// error becomes a timeout StandardError so the failure kind stays coarse.
func (r *Router) execute(ctx context.Context, binding registry.Binding, inv *registry.Invocation) (result interface{}, err error) {
	ctx, cancel := context.WithTimeout(ctx, r.config.HandlerTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.HandlerDuration.WithLabelValues(binding.Name).Observe(time.Since(start).Seconds())
		if rec := recover(); rec != nil {
			r.logger.Error("capability panicked", map[string]interface{}{
				"handler":  binding.Name,
				"panic":    fmt.Sprintf("%v", rec),
				"trace_id": inv.TraceID,
			})
			result = nil
			err = errors.NewInternalError(fmt.Errorf("capability panic: %v", rec))
		}
	}()

	result, err = binding.Capability.Execute(ctx, inv)
	if err != nil && stderrors.Is(err, context.DeadlineExceeded) {
		if _, isStandard := errors.AsStandardError(err); !isStandard {
			err = errors.NewBackendTimeoutError(binding.Name)
		}
	}
	return result, err
}
