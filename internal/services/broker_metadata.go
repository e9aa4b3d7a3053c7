package services

import (
	"context"
	"strings"

	"github.com/yukikurage/cms-resource-broker/internal/access"
	"github.com/yukikurage/cms-resource-broker/internal/errors"
	"github.com/yukikurage/cms-resource-broker/internal/models"
)

// ReadResourceType reads a resource type by name
func (b *ResourceBroker) ReadResourceType(ctx context.Context, caller Caller, name string) (rt *models.ResourceType, err error) {
	c, err := b.begin(ctx, caller, access.OpResourceTypeRead, arg{"resource type", name})
	if err != nil {
		return nil, err
	}
	defer c.end(&err)

	if err := c.authorize(access.Request{}); err != nil {
		return nil, err
	}
	return c.resourceType(name)
}

// GetAllResourceTypes lists every resource type
func (b *ResourceBroker) GetAllResourceTypes(ctx context.Context, caller Caller) (types []models.ResourceType, err error) {
	c, err := b.begin(ctx, caller, access.OpResourceTypeRead)
	if err != nil {
		return nil, err
	}
	defer c.end(&err)

	if err := c.authorize(access.Request{}); err != nil {
		return nil, err
	}
	types, err = b.stores.Resources.ListResourceTypes(ctx)
	if err != nil {
		return nil, c.fail(err, "resource types")
	}
	return types, nil
}

// AddResourceType registers a new resource type
func (b *ResourceBroker) AddResourceType(ctx context.Context, caller Caller, name string) (rt *models.ResourceType, err error) {
	c, err := b.begin(ctx, caller, access.OpResourceTypeWrite, arg{"resource type", name})
	if err != nil {
		return nil, err
	}
	defer c.end(&err)

	if err := c.authorize(access.Request{}); err != nil {
		return nil, err
	}
	rt = &models.ResourceType{Name: name}
	if err := b.stores.Resources.CreateResourceType(ctx, rt); err != nil {
		return nil, c.fail(err, "resource type %q already exists", name)
	}
	return rt, nil
}

// ReadMetadefinition reads the definition name of a resource type
func (b *ResourceBroker) ReadMetadefinition(ctx context.Context, caller Caller, name, typeName string) (def *models.Metadefinition, err error) {
	c, err := b.begin(ctx, caller, access.OpMetadefRead, arg{"definition name", name}, arg{"resource type", typeName})
	if err != nil {
		return nil, err
	}
	defer c.end(&err)

	if err := c.authorize(access.Request{}); err != nil {
		return nil, err
	}
	rt, err := c.resourceType(typeName)
	if err != nil {
		return nil, err
	}
	def, err = b.stores.Metadefinitions.FindMetadefinition(ctx, name, rt.ID)
	if err != nil {
		return nil, c.fail(err, "metadefinition %q of %q", name, typeName)
	}
	return def, nil
}

// ReadAllMetadefinitions lists the definitions of a resource type
func (b *ResourceBroker) ReadAllMetadefinitions(ctx context.Context, caller Caller, typeName string) ([]models.Metadefinition, error) {
	return b.readMetadefinitions(ctx, caller, typeName, nil)
}

// ReadAllMetadefinitionsOfKind lists the definitions of one kind
func (b *ResourceBroker) ReadAllMetadefinitionsOfKind(ctx context.Context, caller Caller, typeName string, kind models.MetadefinitionKind) ([]models.Metadefinition, error) {
	return b.readMetadefinitions(ctx, caller, typeName, &kind)
}

func (b *ResourceBroker) readMetadefinitions(ctx context.Context, caller Caller, typeName string, kind *models.MetadefinitionKind) (defs []models.Metadefinition, err error) {
	c, err := b.begin(ctx, caller, access.OpMetadefRead, arg{"resource type", typeName}, check(func(op access.Operation) error {
		if kind == nil {
			return nil
		}
		return validKind(op, *kind)
	}))
	if err != nil {
		return nil, err
	}
	defer c.end(&err)

	if err := c.authorize(access.Request{}); err != nil {
		return nil, err
	}
	rt, err := c.resourceType(typeName)
	if err != nil {
		return nil, err
	}
	defs, err = b.stores.Metadefinitions.ListMetadefinitions(ctx, rt.ID, kind)
	if err != nil {
		return nil, c.fail(err, "metadefinitions of %q", typeName)
	}
	return defs, nil
}

// CreateMetadefinition adds a definition to a resource type
func (b *ResourceBroker) CreateMetadefinition(ctx context.Context, caller Caller, name, typeName string, kind models.MetadefinitionKind) (def *models.Metadefinition, err error) {
	c, err := b.begin(ctx, caller, access.OpMetadefWrite,
		arg{"definition name", name}, arg{"resource type", typeName}, kindArg(kind))
	if err != nil {
		return nil, err
	}
	defer c.end(&err)

	if err := c.authorize(access.Request{}); err != nil {
		return nil, err
	}
	rt, err := c.resourceType(typeName)
	if err != nil {
		return nil, err
	}

	def = &models.Metadefinition{Name: name, TypeID: rt.ID, Kind: kind}
	if err := b.stores.Metadefinitions.CreateMetadefinition(ctx, def); err != nil {
		return nil, c.fail(err, "metadefinition %q of %q already exists", name, typeName)
	}
	return def, nil
}

// WriteMetadefinition rewrites a definition. Definitions are append only:
// once a value references one it can no longer change.
func (b *ResourceBroker) WriteMetadefinition(ctx context.Context, caller Caller, def *models.Metadefinition) (err error) {
	if def == nil {
		def = &models.Metadefinition{}
	}
	c, err := b.begin(ctx, caller, access.OpMetadefWrite,
		arg{"definition id", def.ID}, arg{"definition name", def.Name}, arg{"resource type", def.TypeID}, kindArg(def.Kind))
	if err != nil {
		return err
	}
	defer c.end(&err)

	if err := c.authorize(access.Request{}); err != nil {
		return err
	}
	if err := b.stores.Metadefinitions.UpdateMetadefinition(ctx, def); err != nil {
		return c.fail(err, "metadefinition %q", def.Name)
	}
	return nil
}

// DeleteMetadefinition removes an unreferenced definition
func (b *ResourceBroker) DeleteMetadefinition(ctx context.Context, caller Caller, name, typeName string) (err error) {
	c, err := b.begin(ctx, caller, access.OpMetadefWrite, arg{"definition name", name}, arg{"resource type", typeName})
	if err != nil {
		return err
	}
	defer c.end(&err)

	if err := c.authorize(access.Request{}); err != nil {
		return err
	}
	rt, err := c.resourceType(typeName)
	if err != nil {
		return err
	}
	def, err := b.stores.Metadefinitions.FindMetadefinition(ctx, name, rt.ID)
	if err != nil {
		return c.fail(err, "metadefinition %q of %q", name, typeName)
	}
	if err := b.stores.Metadefinitions.DeleteMetadefinition(ctx, def.ID); err != nil {
		return c.fail(err, "metadefinition %q", name)
	}
	return nil
}

// CreateResource creates a resource pending in the current project
func (b *ResourceBroker) CreateResource(ctx context.Context, caller Caller, path, typeName string, accessFlags int) (resource *models.Resource, err error) {
	c, err := b.begin(ctx, caller, access.OpResourceCreate, check(func(op access.Operation) error {
		if !strings.HasPrefix(path, "/") {
			return errors.NewValidation(string(op), "path %q must be absolute", path)
		}
		return nil
	}), arg{"resource type", typeName})
	if err != nil {
		return nil, err
	}
	defer c.end(&err)

	if err := c.authorize(access.Request{}); err != nil {
		return nil, err
	}
	rt, err := c.resourceType(typeName)
	if err != nil {
		return nil, err
	}

	unlock, err := c.lockCurrent()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if accessFlags == 0 {
		accessFlags = models.AccessDefault
	}
	resource = &models.Resource{
		Path:        path,
		TypeID:      rt.ID,
		OwnerID:     c.principal.User.ID,
		GroupID:     c.project.GroupID,
		AccessFlags: accessFlags,
		ProjectID:   c.project.ID,
	}
	if err := b.stores.Resources.CreateResource(ctx, resource); err != nil {
		return nil, c.fail(err, "resource %q already exists", path)
	}
	return resource, nil
}

// ReadResource reads a resource as visible from the current project
func (b *ResourceBroker) ReadResource(ctx context.Context, caller Caller, path string) (resource *models.Resource, err error) {
	c, err := b.begin(ctx, caller, access.OpResourceRead, arg{"path", path})
	if err != nil {
		return nil, err
	}
	defer c.end(&err)

	resource, err = c.resource(path)
	if err != nil {
		return nil, err
	}
	if err := c.authorize(access.Request{Resource: resource}); err != nil {
		return nil, err
	}
	return resource, nil
}

// ReadMetainformation reads one value of a resource
func (b *ResourceBroker) ReadMetainformation(ctx context.Context, caller Caller, path, name string) (value string, err error) {
	c, err := b.begin(ctx, caller, access.OpMetainfoRead, arg{"path", path}, arg{"name", name})
	if err != nil {
		return "", err
	}
	defer c.end(&err)

	resource, err := c.resource(path)
	if err != nil {
		return "", err
	}
	if err := c.authorize(access.Request{Resource: resource}); err != nil {
		return "", err
	}
	online, err := c.online()
	if err != nil {
		return "", err
	}

	value, err = b.stores.Properties.ReadValue(ctx, resource.ID, c.project.ID, online.ID, name)
	if err != nil {
		return "", c.fail(err, "metainformation %q of %q", name, path)
	}
	return value, nil
}

// ReadAllMetainformations reads every value of a resource
func (b *ResourceBroker) ReadAllMetainformations(ctx context.Context, caller Caller, path string) (values map[string]string, err error) {
	c, err := b.begin(ctx, caller, access.OpMetainfoRead, arg{"path", path})
	if err != nil {
		return nil, err
	}
	defer c.end(&err)

	resource, err := c.resource(path)
	if err != nil {
		return nil, err
	}
	if err := c.authorize(access.Request{Resource: resource}); err != nil {
		return nil, err
	}
	online, err := c.online()
	if err != nil {
		return nil, err
	}

	values, err = b.stores.Properties.ReadAll(ctx, resource.ID, c.project.ID, online.ID)
	if err != nil {
		return nil, c.fail(err, "metainformations of %q", path)
	}
	return values, nil
}

// WriteMetainformation writes one value of a resource
func (b *ResourceBroker) WriteMetainformation(ctx context.Context, caller Caller, path, name, value string) error {
	return b.WriteMetainformations(ctx, caller, path, map[string]string{name: value})
}

// WriteMetainformations writes several values of a resource. Every name
// must be defined for the resource type; otherwise nothing is written.
func (b *ResourceBroker) WriteMetainformations(ctx context.Context, caller Caller, path string, values map[string]string) (err error) {
	c, err := b.begin(ctx, caller, access.OpMetainfoWrite, arg{"path", path}, check(func(op access.Operation) error {
		for name := range values {
			if err := (arg{"name", name}).validate(op); err != nil {
				return err
			}
		}
		return nil
	}))
	if err != nil {
		return err
	}
	defer c.end(&err)

	resource, err := c.resource(path)
	if err != nil {
		return err
	}
	if err := c.authorize(access.Request{Resource: resource}); err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}

	for name := range values {
		if _, err := b.stores.Metadefinitions.FindMetadefinition(ctx, name, resource.TypeID); err != nil {
			return c.fail(err, "metadefinition %q", name)
		}
	}

	unlock, err := c.lockCurrent()
	if err != nil {
		return err
	}
	defer unlock()

	if err := b.stores.Properties.WriteValues(ctx, resource.ID, c.project.ID, values); err != nil {
		return c.fail(err, "metainformations of %q", path)
	}
	return nil
}

// DeleteMetainformation removes one value; a missing value is left alone
func (b *ResourceBroker) DeleteMetainformation(ctx context.Context, caller Caller, path, name string) error {
	return b.deleteMetainformations(ctx, caller, path, []string{name})
}

// DeleteAllMetainformations removes every value of a resource
func (b *ResourceBroker) DeleteAllMetainformations(ctx context.Context, caller Caller, path string) error {
	return b.deleteMetainformations(ctx, caller, path, nil)
}

func (b *ResourceBroker) deleteMetainformations(ctx context.Context, caller Caller, path string, names []string) (err error) {
	c, err := b.begin(ctx, caller, access.OpMetainfoWrite, arg{"path", path}, check(func(op access.Operation) error {
		for _, name := range names {
			if err := (arg{"name", name}).validate(op); err != nil {
				return err
			}
		}
		return nil
	}))
	if err != nil {
		return err
	}
	defer c.end(&err)

	resource, err := c.resource(path)
	if err != nil {
		return err
	}
	if err := c.authorize(access.Request{Resource: resource}); err != nil {
		return err
	}
	online, err := c.online()
	if err != nil {
		return err
	}

	unlock, err := c.lockCurrent()
	if err != nil {
		return err
	}
	defer unlock()

	if err := b.stores.Properties.DeleteValues(ctx, resource.ID, c.project.ID, online.ID, names); err != nil {
		return c.fail(err, "metainformations of %q", path)
	}
	return nil
}

func (c *call) resourceType(name string) (*models.ResourceType, error) {
	rt, err := c.b.stores.Resources.FindResourceType(c.ctx, name)
	if err != nil {
		return nil, c.fail(err, "resource type %q", name)
	}
	return rt, nil
}

// resource finds path as visible from the current project.
func (c *call) resource(path string) (*models.Resource, error) {
	online, err := c.online()
	if err != nil {
		return nil, err
	}
	resource, err := c.b.stores.Resources.FindResource(c.ctx, path, c.project.ID, online.ID)
	if err != nil {
		return nil, c.fail(err, "resource %q", path)
	}
	return resource, nil
}

func validKind(op access.Operation, kind models.MetadefinitionKind) error {
	if !kind.Valid() {
		return errors.NewValidation(string(op), "unknown metadefinition kind %d", kind)
	}
	return nil
}

func kindArg(kind models.MetadefinitionKind) check {
	return func(op access.Operation) error { return validKind(op, kind) }
}
