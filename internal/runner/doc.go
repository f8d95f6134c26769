// Package runner turns a config.Config into the pieces a run needs: the
// fixture store, the browser session and the scenario environment.
//
//	st, err := runner.OpenStore(ctx, cfg, logger)
//	defer st.Close()
//	env, closeSession, err := runner.NewEnv(ctx, cfg, st, logger)
//	defer closeSession()
//	results := harness.Run(filter, testLogger, scenarios.Suite(env))
package runner
