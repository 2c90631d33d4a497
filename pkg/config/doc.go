// Package config loads teamsites configuration from TEAMSITES_* environment
// variables and an optional YAML file.
//
// # Overview
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Every setting has a default except the identity provider URL. Validate runs
// as part of LoadConfig.
//
// # Reloadable Settings
//
// The YAML file named by TEAMSITES_CONFIG_FILE holds the reserved subdomain
// list and allowed origins. A Watcher reloads it on change:
//
//	w := config.NewWatcher(cfg.FilePath, logger, func(f *config.FileConfig) {
//		sites.SetReserved(f.ReservedSubdomains)
//	})
//	go w.Run(ctx)
package config
