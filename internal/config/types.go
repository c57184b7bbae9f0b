package config

// SlackConfig holds the Slack app credentials used for the install flow
// and webhook verification.
type SlackConfig struct {
	ClientID      string `yaml:"client_id" koanf:"client_id"`
	ClientSecret  string `yaml:"client_secret" koanf:"client_secret"`
	SigningSecret string `yaml:"signing_secret" koanf:"signing_secret"`
	RedirectURL   string `yaml:"redirect_url" koanf:"redirect_url"`
}

// Config is the top-level drillbot configuration, corresponding to
// .drillbot.yml.
type Config struct {
	Port         int         `yaml:"port" koanf:"port"`
	DataDir      string      `yaml:"data_dir" koanf:"data_dir"`
	AuditDB      string      `yaml:"audit_db" koanf:"audit_db"`
	BotName      string      `yaml:"bot_name" koanf:"bot_name"`
	RTM          bool        `yaml:"rtm" koanf:"rtm"`
	AllowAllCORS bool        `yaml:"allow_all_cors" koanf:"allow_all_cors"`
	Slack        SlackConfig `yaml:"slack" koanf:"slack"`
}
