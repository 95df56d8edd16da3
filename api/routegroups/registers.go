package routegroups

import (
	"github.com/go-chi/chi/v5"

	"saker-rro/api/handlers"
)

// RegisterRegisters mounts the three register kinds under one parameterized
// route tree; the {register} segment picks risks, issues or opportunities.
func RegisterRegisters(apiRouter chi.Router, registers *handlers.RegistersHandler, steps *handlers.StepsHandler) {
	apiRouter.Route("/{register:risks|issues|opportunities}", func(registerRouter chi.Router) {
		registerRouter.MethodFunc("GET", "/", registers.List)
		registerRouter.MethodFunc("POST", "/", registers.Create)
		registerRouter.Route("/{id}", func(entityRouter chi.Router) {
			entityRouter.MethodFunc("GET", "/", registers.Get)
			entityRouter.MethodFunc("PATCH", "/", registers.Update)
			entityRouter.MethodFunc("DELETE", "/", registers.Delete)
			entityRouter.MethodFunc("GET", "/history", registers.History)
			entityRouter.MethodFunc("GET", "/waterfall", registers.Waterfall)
			entityRouter.MethodFunc("GET", "/audit-log", registers.AuditLog)

			entityRouter.Route("/steps", func(stepsRouter chi.Router) {
				stepsRouter.MethodFunc("GET", "/", steps.List)
				stepsRouter.MethodFunc("POST", "/", steps.Create)
				stepsRouter.MethodFunc("PUT", "/order", steps.Reorder)
				stepsRouter.MethodFunc("GET", "/{step_id}", steps.Get)
				stepsRouter.MethodFunc("PATCH", "/{step_id}", steps.Update)
				stepsRouter.MethodFunc("DELETE", "/{step_id}", steps.Delete)
				stepsRouter.MethodFunc("POST", "/{step_id}/complete", steps.Complete)
			})
		})
	})
}

func RegisterCategories(apiRouter chi.Router, categories *handlers.CategoriesHandler) {
	apiRouter.Route("/categories", func(categoriesRouter chi.Router) {
		categoriesRouter.MethodFunc("GET", "/", categories.List)
		categoriesRouter.MethodFunc("POST", "/", categories.Create)
		categoriesRouter.MethodFunc("DELETE", "/{id}", categories.Delete)
	})
}
