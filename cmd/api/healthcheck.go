// cmd/api/healthcheck.go
package main

import "net/http"

// healthcheckHandler handles GET /healthz. It is the only unauthenticated
// route and always answers 200 while the process is up.
func (app *applicationDependencies) healthcheckHandler(w http.ResponseWriter, r *http.Request) {
	data := envelope{
		"status": "available",
		"system_info": envelope{
			"environment": app.config.environment,
			"version":     appVersion,
		},
	}

	err := app.writeJSON(w, http.StatusOK, data, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
