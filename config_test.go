package helix

import "testing"

func TestConfigValidate(t *testing.T) {
	valid := Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:8080/callback",
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing client id", mutate: func(c *Config) { c.ClientID = "" }, wantErr: true},
		{name: "missing client secret", mutate: func(c *Config) { c.ClientSecret = "" }, wantErr: true},
		{name: "missing redirect URL", mutate: func(c *Config) { c.RedirectURL = "" }, wantErr: true},
		{name: "relative redirect URL", mutate: func(c *Config) { c.RedirectURL = "/callback" }, wantErr: true},
		{name: "redirect URL without path", mutate: func(c *Config) { c.RedirectURL = "http://localhost:8080" }, wantErr: true},
		{name: "redirect URL with root path", mutate: func(c *Config) { c.RedirectURL = "http://localhost:8080/" }, wantErr: true},
		{name: "https redirect", mutate: func(c *Config) { c.RedirectURL = "https://bot.example.com/oauth/callback" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
