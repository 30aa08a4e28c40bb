package prep

import (
	"kiritan/internal/deps"
	"kiritan/internal/stage"
)

// Handlers returns every stage in ascending number order.
func Handlers() []stage.Handler {
	return []stage.Handler{
		Download{},
		Split{},
		DataDir{},
		Segments{},
	}
}

// toolHealth reports whether the program behind argv (and its script, when
// the second element names one) can be found.
func toolHealth(env *stage.Env, name string, argv []string) stage.Health {
	if env == nil || env.Config == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if len(argv) == 0 {
		return stage.Unhealthy(name, "command not configured")
	}
	req := deps.CommandRequirement(env.Config.Paths.RecipeDir, name, "", argv)
	status := deps.CheckBinaries([]deps.Requirement{req})[0]
	if !status.Available {
		return stage.Unhealthy(name, status.Detail)
	}
	return stage.Healthy(name)
}
