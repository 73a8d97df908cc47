package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lifectl/internal/config"
	"lifectl/internal/module"
	"lifectl/internal/transport"
	"lifectl/pkg/logging"
)

// CallResult is the outcome of one remote call made by a controller.
type CallResult struct {
	Controller string
	Service    string
	Member     string
	Value      any
	Err        error
}

// ServiceLookup resolves a discovered service by name.
type ServiceLookup func(name string) (transport.Endpoint, error)

var errReadOnly = errors.New("service is read-only")

func builtinMember(kind config.MemberKind) (transport.Member, error) {
	switch kind {
	case config.MemberKindEcho:
		return func(ctx context.Context, args map[string]any) (any, error) {
			return args, nil
		}, nil
	case config.MemberKindPing:
		return func(ctx context.Context, args map[string]any) (any, error) {
			return "pong", nil
		}, nil
	case config.MemberKindTime:
		return func(ctx context.Context, args map[string]any) (any, error) {
			return time.Now().UTC().Format(time.RFC3339), nil
		}, nil
	case config.MemberKindUpper:
		return func(ctx context.Context, args map[string]any) (any, error) {
			text, ok := args["text"].(string)
			if !ok {
				return nil, errors.New("missing string argument \"text\"")
			}
			return strings.ToUpper(text), nil
		}, nil
	}
	return nil, fmt.Errorf("unknown member kind %q", kind)
}

func readOnlyGuard(ctx context.Context, member string, args map[string]any) (map[string]any, error) {
	if _, ok := args["write"]; ok {
		return nil, errReadOnly
	}
	return nil, nil
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// BuildServices turns service definitions into authority modules.
func BuildServices(defs []config.ServiceDefinition) ([]*module.Service, error) {
	services := make([]*module.Service, 0, len(defs))
	for _, def := range defs {
		svc := &module.Service{Name: def.Name}

		if len(def.Members) > 0 {
			svc.Remote = make(map[string]transport.Member, len(def.Members))
			for _, m := range def.Members {
				fn, err := builtinMember(m.Kind)
				if err != nil {
					return nil, fmt.Errorf("service %s member %s: %w", def.Name, m.Name, err)
				}
				svc.Remote[m.Name] = fn
			}
		}
		if def.ReadOnly {
			svc.Middleware = &transport.Middleware{Inbound: []transport.InboundGuard{readOnlyGuard}}
		}

		initDelay, failInit := def.InitDelay, def.FailInit
		svc.Init = func(ctx context.Context) error {
			if err := sleepCtx(ctx, initDelay); err != nil {
				return err
			}
			if failInit != "" {
				return errors.New(failInit)
			}
			return nil
		}

		services = append(services, svc)
	}
	return services, nil
}

// BuildControllers turns controller definitions into dependent modules.
// Each controller makes its calls when it starts; lookup resolves the
// services and onResult, if set, observes every outcome.
func BuildControllers(defs []config.ControllerDefinition, lookup ServiceLookup, onResult func(CallResult)) []*module.Controller {
	controllers := make([]*module.Controller, 0, len(defs))
	for _, def := range defs {
		name, calls, initDelay := def.Name, def.Calls, def.InitDelay

		controllers = append(controllers, &module.Controller{
			Name: name,
			Init: func(ctx context.Context) error {
				return sleepCtx(ctx, initDelay)
			},
			Start: func(ctx context.Context) error {
				var errs []error
				for _, call := range calls {
					result := CallResult{Controller: name, Service: call.Service, Member: call.Member}

					ep, err := lookup(call.Service)
					if err == nil {
						result.Value, err = ep.Call(ctx, call.Member, call.Args)
					}
					result.Err = err

					if err != nil {
						logging.Warn("Controller", "%s: call %s.%s failed: %v", name, call.Service, call.Member, err)
						errs = append(errs, err)
					} else {
						logging.Info("Controller", "%s: %s.%s returned %v", name, call.Service, call.Member, result.Value)
					}
					if onResult != nil {
						onResult(result)
					}
				}
				return errors.Join(errs...)
			},
		})
	}
	return controllers
}
