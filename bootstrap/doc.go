// Package bootstrap runs the lifecycle of a phrame process.
//
// NewApp takes a loaded config.AppConfig, initializes the logger and an
// empty component registry. Run starts the components, runs the OnStart
// hooks and the OnConfigure callbacks, checks health, prints a startup
// summary and blocks until SIGINT or SIGTERM. Shutdown runs the OnStop
// hooks and stops the components in reverse order. RunTask gives one-shot
// commands the same startup and shutdown around a finite task.
//
//	app, err := bootstrap.NewApp(cfg)
//	if err != nil {
//	    return err
//	}
//	_ = app.RegisterComponent(db)
//	return app.Run(ctx)
package bootstrap
