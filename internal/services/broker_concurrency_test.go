package services

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/cms-resource-broker/internal/errors"
	"github.com/yukikurage/cms-resource-broker/internal/models"
)

func TestResourceBroker_ConcurrentPublish(t *testing.T) {
	forEachBackend(t, func(t *testing.T, env brokerTestEnv) {
		leader := env.addUser(t, "leader", env.cfg.ProjectLeaderGroup)
		for _, name := range []string{"Title", "Author"} {
			_, err := env.broker.CreateMetadefinition(env.ctx, env.admin, name, "plain", models.MetadefinitionNormal)
			require.NoError(t, err)
		}
		_, err := env.broker.CreateProject(env.ctx, leader, "Spring", "", "", "leader", env.cfg.ProjectLeaderGroup, 0)
		require.NoError(t, err)
		spring := in(leader, "Spring")

		_, err = env.broker.CreateResource(env.ctx, spring, "/index.html", "plain", 0)
		require.NoError(t, err)
		require.NoError(t, env.broker.WriteMetainformations(env.ctx, spring, "/index.html", map[string]string{
			"Title":  "v-initial",
			"Author": "v-initial",
		}))

		const writers = 16
		var wg sync.WaitGroup
		errs := make([]error, writers)
		publishErrs := make([]error, 2)

		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				v := fmt.Sprintf("v-%d", i)
				errs[i] = env.broker.WriteMetainformations(env.ctx, spring, "/index.html", map[string]string{
					"Title":  v,
					"Author": v,
				})
			}(i)
		}
		for i := range publishErrs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, publishErrs[i] = env.broker.PublishProject(env.ctx, leader, "Spring")
			}(i)
		}
		wg.Wait()

		for _, err := range errs {
			if err != nil {
				assert.Equal(t, errors.KindConflict, errors.KindOf(err), "unexpected error: %v", err)
			}
		}

		succeeded := 0
		for _, err := range publishErrs {
			if err == nil {
				succeeded++
				continue
			}
			assert.Equal(t, errors.KindConflict, errors.KindOf(err), "unexpected error: %v", err)
		}
		assert.Equal(t, 1, succeeded)

		online, err := env.broker.ReadAllMetainformations(env.ctx, env.guest, "/index.html")
		require.NoError(t, err)
		require.Len(t, online, 2)
		assert.Equal(t, online["Title"], online["Author"], "a bulk write was split by publish")

		project, err := env.broker.ReadProject(env.ctx, leader, "Spring")
		require.NoError(t, err)
		assert.Equal(t, models.ProjectStatePublished, project.State)
	})
}
