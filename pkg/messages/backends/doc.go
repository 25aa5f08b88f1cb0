// Package backends picks the stored messages engine at startup.
//
//	var cfg backends.Config
//	if err := config.Load(&cfg); err != nil {
//	    return err
//	}
//
//	store, closeFn, err := backends.OpenStore(ctx, cfg, backends.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	defer closeFn()
//
// The selection is fixed for the process lifetime; there is no switching
// at runtime.
package backends
