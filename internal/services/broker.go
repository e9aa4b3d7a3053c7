package services

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yukikurage/cms-resource-broker/internal/access"
	"github.com/yukikurage/cms-resource-broker/internal/config"
	"github.com/yukikurage/cms-resource-broker/internal/errors"
	"github.com/yukikurage/cms-resource-broker/internal/metrics"
	"github.com/yukikurage/cms-resource-broker/internal/models"
	"github.com/yukikurage/cms-resource-broker/internal/repository"
)

const (
	ruleKnownPrincipal   = "known_principal"
	ruleEnabledPrincipal = "enabled_principal"
	ruleCredentials      = "credentials"
)

// Caller identifies who acts and in which project. Both are required on
// every broker call.
type Caller struct {
	User    string
	Project string
}

// BrokerDeps bundles the collaborators of a ResourceBroker.
type BrokerDeps struct {
	Stores    *repository.Stores
	Evaluator *access.Evaluator
	Logger    zerolog.Logger
	Metrics   *metrics.BrokerMetrics
	Config    config.BrokerConfig
}

// ResourceBroker is the single entry point to projects, principals,
// metadata definitions, resources and their metainformation.
type ResourceBroker struct {
	stores    *repository.Stores
	evaluator *access.Evaluator
	log       zerolog.Logger
	metrics   *metrics.BrokerMetrics
	cfg       config.BrokerConfig
	locks     *projectLocks
}

// NewResourceBroker creates a new ResourceBroker
func NewResourceBroker(deps BrokerDeps) *ResourceBroker {
	evaluator := deps.Evaluator
	if evaluator == nil {
		evaluator = access.NewEvaluator(access.Roles{
			AdminGroup:         deps.Config.AdminGroup,
			ProjectLeaderGroup: deps.Config.ProjectLeaderGroup,
			GuestUser:          deps.Config.GuestUser,
		})
	}
	return &ResourceBroker{
		stores:    deps.Stores,
		evaluator: evaluator,
		log:       deps.Logger,
		metrics:   deps.Metrics,
		cfg:       deps.Config,
		locks:     newProjectLocks(),
	}
}

// validator checks one argument before any store is touched.
type validator interface {
	validate(op access.Operation) error
}

// arg is a named string argument that must not be blank.
type arg struct {
	name  string
	value string
}

func (a arg) validate(op access.Operation) error {
	if strings.TrimSpace(a.value) == "" {
		return errors.NewValidation(string(op), "%s is required", a.name)
	}
	return nil
}

// check is an ad hoc argument rule.
type check func(op access.Operation) error

func (f check) validate(op access.Operation) error {
	return f(op)
}

// call carries the resolved context of one broker operation.
type call struct {
	ctx       context.Context
	b         *ResourceBroker
	op        access.Operation
	caller    Caller
	started   time.Time
	principal access.Principal
	project   *models.Project
}

// begin validates the caller and required arguments, then resolves the
// acting principal and the current project. On failure the outcome is
// already recorded.
func (b *ResourceBroker) begin(ctx context.Context, caller Caller, op access.Operation, required ...validator) (*call, error) {
	c := &call{ctx: ctx, b: b, op: op, caller: caller, started: time.Now()}
	if err := c.resolve(required); err != nil {
		c.end(&err)
		return nil, err
	}
	return c, nil
}

func (c *call) resolve(required []validator) error {
	if strings.TrimSpace(c.caller.User) == "" {
		return errors.NewValidation(string(c.op), "acting user is required")
	}
	if strings.TrimSpace(c.caller.Project) == "" {
		return errors.NewValidation(string(c.op), "current project is required")
	}
	for _, v := range required {
		if err := v.validate(c.op); err != nil {
			return err
		}
	}

	stores := c.b.stores
	user, err := stores.UserGroups.FindUserByName(c.ctx, c.caller.User)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return c.deny(ruleKnownPrincipal)
		}
		return c.fail(err, "acting user %q", c.caller.User)
	}
	if user.Disabled() {
		return c.deny(ruleEnabledPrincipal)
	}

	groups, err := stores.UserGroups.ListGroupsOfUser(c.ctx, user.ID)
	if err != nil {
		return c.fail(err, "groups of %q", user.Name)
	}
	c.principal = access.Principal{User: user, Groups: groups}

	project, err := stores.Projects.FindProjectByName(c.ctx, c.caller.Project)
	if err != nil {
		return c.fail(err, "project %q", c.caller.Project)
	}
	c.project = project
	return nil
}

// authorize runs the evaluator. Principal and current project are filled
// in when the request leaves them empty.
func (c *call) authorize(req access.Request) error {
	req.Principal = c.principal
	req.Operation = c.op
	if req.Project == nil {
		req.Project = c.project
	}

	decision := c.b.evaluator.Check(req)
	if decision.Allowed {
		return nil
	}
	return c.deny(decision.Rule)
}

func (c *call) deny(rule string) error {
	c.b.metrics.Denied(string(c.op), rule)
	c.b.log.Debug().
		Str("operation", string(c.op)).
		Str("actor", c.caller.User).
		Str("project", c.caller.Project).
		Str("rule", rule).
		Msg("access denied")
	return errors.NewAccessDenied(string(c.op), rule)
}

// fail maps a store error onto the broker taxonomy. Errors the store does
// not classify become StoreFailure and are logged with full context.
func (c *call) fail(err error, format string, args ...interface{}) error {
	var be *errors.BrokerError
	if stderrors.As(err, &be) {
		return err
	}

	switch {
	case stderrors.Is(err, repository.ErrNotFound):
		e := errors.NewNotFound(string(c.op), format+" not found", args...)
		e.Err = err
		return e
	case stderrors.Is(err, repository.ErrConflict):
		e := errors.NewConflict(string(c.op), format, args...)
		e.Err = err
		return e
	}

	c.b.metrics.StoreFailed(string(c.op))
	c.b.log.Error().
		Err(err).
		Str("operation", string(c.op)).
		Str("actor", c.caller.User).
		Str("project", c.caller.Project).
		Msg("store failure")
	return errors.NewStoreFailure(string(c.op), err)
}

// end records the outcome of the call.
func (c *call) end(errp *error) {
	outcome := "ok"
	if *errp != nil {
		outcome = strings.ToLower(string(errors.KindOf(*errp)))
		if outcome == "" {
			outcome = "error"
		}
	}
	c.b.metrics.Observe(string(c.op), outcome, c.started)
}

// online returns the online project.
func (c *call) online() (*models.Project, error) {
	if c.project != nil && c.project.IsOnline() {
		return c.project, nil
	}
	online, err := c.b.stores.Projects.OnlineProject(c.ctx)
	if err != nil {
		return nil, c.fail(err, "online project")
	}
	return online, nil
}

// lockCurrent holds the shared side of the current project's lock and
// refreshes the project, so writes never interleave with a publish. The
// project must still accept changes.
func (c *call) lockCurrent() (func(), error) {
	lock := c.b.locks.get(c.project.ID)
	lock.RLock()

	project, err := c.b.stores.Projects.FindProjectByID(c.ctx, c.project.ID)
	if err != nil {
		lock.RUnlock()
		return nil, c.fail(err, "project %q", c.project.Name)
	}
	if project.State == models.ProjectStatePublished {
		lock.RUnlock()
		return nil, errors.NewConflict(string(c.op), "project %q is already published", project.Name)
	}
	c.project = project
	return lock.RUnlock, nil
}
