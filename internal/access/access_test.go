package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yukikurage/cms-resource-broker/internal/models"
)

var roles = Roles{AdminGroup: "Administrators", ProjectLeaderGroup: "Projectmanager", GuestUser: "Guest"}

var (
	adminGroup  = models.Group{ID: "g-admin", Name: "Administrators"}
	leaderGroup = models.Group{ID: "g-leader", Name: "Projectmanager"}
	usersGroup  = models.Group{ID: "g-users", Name: "Users"}
	teamGroup   = models.Group{ID: "g-team", Name: "Team"}
	guestGroup  = models.Group{ID: "g-guests", Name: "Guests"}
)

func principal(id, name string, groups ...models.Group) Principal {
	return Principal{User: &models.User{ID: id, Name: name}, Groups: groups}
}

var (
	admin  = principal("u-admin", "Admin", adminGroup, usersGroup)
	leader = principal("u-leader", "Leader", leaderGroup, usersGroup)
	owner  = principal("u-owner", "Owner", usersGroup)
	member = principal("u-member", "Member", teamGroup, usersGroup)
	other  = principal("u-other", "Other", usersGroup)
	guest  = principal("u-guest", "Guest", guestGroup)

	online  = &models.Project{ID: "p-online", Name: "Online", State: models.ProjectStateOnline, OwnerID: "u-admin", GroupID: "g-admin"}
	offline = &models.Project{ID: "p-work", Name: "Work", State: models.ProjectStateUnlocked, OwnerID: "u-owner", GroupID: "g-team"}
)

func TestRoles(t *testing.T) {
	e := NewEvaluator(roles)

	t.Run("IsAdmin follows group membership", func(t *testing.T) {
		assert.True(t, e.IsAdmin(admin))
		for _, p := range []Principal{leader, owner, member, other, guest} {
			assert.False(t, e.IsAdmin(p), p.User.Name)
		}
	})

	t.Run("IsAdmin is true for any user holding the group", func(t *testing.T) {
		assert.True(t, e.IsAdmin(principal("u-x", "X", teamGroup, adminGroup)))
		assert.False(t, e.IsAdmin(principal("u-x", "X", models.Group{ID: "g-admin", Name: "Admins"})))
	})

	t.Run("IsProjectLeader", func(t *testing.T) {
		assert.True(t, e.IsProjectLeader(leader))
		assert.False(t, e.IsProjectLeader(admin))
	})

	t.Run("IsAnonymous", func(t *testing.T) {
		assert.True(t, e.IsAnonymous(guest))
		assert.True(t, e.IsAnonymous(Principal{}))
		assert.False(t, e.IsAnonymous(other))
	})
}

func TestCanAccessProject(t *testing.T) {
	e := NewEvaluator(roles)

	tests := []struct {
		name    string
		p       Principal
		project *models.Project
		want    bool
	}{
		{"everyone reaches online", guest, online, true},
		{"guest cannot reach offline", guest, offline, false},
		{"admin", admin, offline, true},
		{"owner", owner, offline, true},
		{"group member", member, offline, true},
		{"outsider", other, offline, false},
		{"missing project", admin, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.CanAccessProject(tt.p, tt.project))
		})
	}
}

func TestResourceAccess(t *testing.T) {
	e := NewEvaluator(roles)

	private := &models.Resource{ID: "r1", ProjectID: offline.ID, OwnerID: "u-owner", GroupID: "g-team",
		AccessFlags: models.AccessOwnerRead | models.AccessOwnerWrite | models.AccessGroupRead}
	public := &models.Resource{ID: "r2", ProjectID: online.ID, OwnerID: "u-admin", GroupID: "g-admin",
		AccessFlags: models.AccessDefault}
	shared := &models.Resource{ID: "r3", ProjectID: offline.ID, OwnerID: "u-owner", GroupID: "g-team",
		AccessFlags: models.AccessDefault}

	t.Run("read", func(t *testing.T) {
		assert.True(t, e.CanReadResource(owner, offline, private))
		assert.True(t, e.CanReadResource(member, offline, private))
		assert.True(t, e.CanReadResource(admin, offline, private))
		assert.False(t, e.CanReadResource(other, offline, private), "outsider cannot enter the project")
		assert.True(t, e.CanReadResource(other, online, public))
		assert.True(t, e.CanReadResource(guest, online, public))
		assert.False(t, e.CanReadResource(guest, online, shared), "pending resources are not published")
		assert.False(t, e.CanReadResource(guest, offline, public))
	})

	t.Run("write", func(t *testing.T) {
		assert.True(t, e.CanWriteResource(owner, offline, private))
		assert.False(t, e.CanWriteResource(member, offline, private), "group has read only")
		assert.True(t, e.CanWriteResource(member, offline, shared))
		assert.True(t, e.CanWriteResource(admin, offline, private))
		assert.False(t, e.CanWriteResource(admin, online, public), "online project is read only")
		assert.False(t, e.CanWriteResource(guest, online, public))
		assert.False(t, e.CanWriteResource(other, offline, shared))
	})
}

func TestCheck(t *testing.T) {
	e := NewEvaluator(roles)

	writable := &models.Resource{ID: "r1", ProjectID: offline.ID, OwnerID: "u-owner", GroupID: "g-team",
		AccessFlags: models.AccessDefault}
	readOnly := &models.Resource{ID: "r2", ProjectID: offline.ID, OwnerID: "u-owner", GroupID: "g-team",
		AccessFlags: models.AccessOwnerRead | models.AccessOwnerWrite | models.AccessGroupRead | models.AccessPublicRead}

	tests := []struct {
		name string
		req  Request
		want bool
		rule string
	}{
		{"anyone lists projects", Request{Principal: guest, Operation: OpProjectList}, true, RuleEveryone},
		{"guest reads online project", Request{Principal: guest, Operation: OpProjectRead, Project: online}, true, RuleEveryone},
		{"guest cannot read offline project", Request{Principal: guest, Operation: OpProjectRead, Project: offline}, false, RuleAnonymousOnline},
		{"user reads any project", Request{Principal: other, Operation: OpProjectRead, Project: offline}, true, RuleEveryone},

		{"admin creates project", Request{Principal: admin, Operation: OpProjectCreate}, true, RuleAdminOrLeader},
		{"leader creates project", Request{Principal: leader, Operation: OpProjectCreate}, true, RuleAdminOrLeader},
		{"user cannot create project", Request{Principal: other, Operation: OpProjectCreate}, false, RuleAdminOrLeader},

		{"owner publishes", Request{Principal: owner, Operation: OpProjectPublish, Project: offline}, true, RuleAdminOrOwner},
		{"admin publishes", Request{Principal: admin, Operation: OpProjectPublish, Project: offline}, true, RuleAdminOrOwner},
		{"leader cannot publish foreign project", Request{Principal: leader, Operation: OpProjectPublish, Project: offline}, false, RuleAdminOrOwner},
		{"member cannot publish", Request{Principal: member, Operation: OpProjectPublish, Project: offline}, false, RuleAdminOrOwner},
		{"member cannot delete", Request{Principal: member, Operation: OpProjectDelete, Project: offline}, false, RuleAdminOrOwner},

		{"guest cannot read directory", Request{Principal: guest, Operation: OpDirectoryRead, Project: online}, false, RuleAuthenticated},
		{"user reads directory", Request{Principal: other, Operation: OpDirectoryRead}, true, RuleAuthenticated},

		{"guest reads metadefs", Request{Principal: guest, Operation: OpMetadefRead}, true, RuleEveryone},
		{"user cannot write metadefs", Request{Principal: other, Operation: OpMetadefWrite}, false, RuleAdmin},
		{"admin writes metadefs", Request{Principal: admin, Operation: OpMetadefWrite}, true, RuleAdmin},
		{"leader cannot add resource types", Request{Principal: leader, Operation: OpResourceTypeWrite}, false, RuleAdmin},

		{"admin writes principals", Request{Principal: admin, Operation: OpPrincipalWrite}, true, RuleAdmin},
		{"user cannot write principals", Request{Principal: owner, Operation: OpPrincipalWrite}, false, RuleAdmin},

		{"self password", Request{Principal: other, Operation: OpPrincipalPassword, TargetUser: "Other"}, true, RuleAdminOrSelf},
		{"foreign password", Request{Principal: other, Operation: OpPrincipalPassword, TargetUser: "Owner"}, false, RuleAdminOrSelf},
		{"admin resets password", Request{Principal: admin, Operation: OpPrincipalPassword, TargetUser: "Owner"}, true, RuleAdminOrSelf},
		{"guest cannot change own password", Request{Principal: guest, Operation: OpPrincipalPassword, TargetUser: "Guest"}, false, RuleAdminOrSelf},

		{"member creates resource", Request{Principal: member, Operation: OpResourceCreate, Project: offline}, true, RuleProjectAccess},
		{"outsider cannot create resource", Request{Principal: other, Operation: OpResourceCreate, Project: offline}, false, RuleProjectAccess},
		{"nobody creates online", Request{Principal: admin, Operation: OpResourceCreate, Project: online}, false, RuleOnlineReadOnly},
		{"guest cannot create resource", Request{Principal: guest, Operation: OpResourceCreate, Project: offline}, false, RuleAuthenticated},

		{"member writes metadata", Request{Principal: member, Operation: OpMetainfoWrite, Project: offline, Resource: writable}, true, RuleResourceWrite},
		{"read access is not enough to write", Request{Principal: member, Operation: OpMetainfoWrite, Project: offline, Resource: readOnly}, false, RuleResourceWrite},
		{"member reads metadata", Request{Principal: member, Operation: OpMetainfoRead, Project: offline, Resource: readOnly}, true, RuleResourceRead},
		{"no metadata writes online", Request{Principal: admin, Operation: OpMetainfoWrite, Project: online, Resource: writable}, false, RuleOnlineReadOnly},

		{"guest asks about itself", Request{Principal: guest, Operation: OpPrincipalSelf}, true, RuleEveryone},
		{"guest logs in", Request{Principal: guest, Operation: OpPrincipalAuthenticate}, true, RuleEveryone},

		{"unknown operation", Request{Principal: admin, Operation: "file.lock"}, false, RuleUnknownOperation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := e.Check(tt.req)
			assert.Equal(t, tt.want, d.Allowed)
			assert.Equal(t, tt.rule, d.Rule)
		})
	}
}

func TestCheckIsDeterministic(t *testing.T) {
	e := NewEvaluator(roles)
	req := Request{Principal: owner, Operation: OpProjectPublish, Project: offline}

	first := e.Check(req)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, e.Check(req))
	}
}
