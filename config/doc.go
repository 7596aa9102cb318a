// Package config loads the phrame configuration.
//
// Load resolves cmd/<service>/config.yml (or config/config.yml, or
// ./config.yml) and an optional .env file, then lets environment variables
// override any key. OPENAI_KEY sets openai.key and OPENAI_IMAGE_N sets
// openai.image.n. Defaults are applied per block before validation, which
// runs the struct tags first and then the rules that span several fields,
// such as the pixel range of a Stability AI engine.
//
// # Usage
//
//	cfg, err := config.Load("phrame")
//	if err != nil {
//	    return err
//	}
//	trigger := coordinator.NewTrigger(cfg.TriggerConfig(), coord, store)
package config
