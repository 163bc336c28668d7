package config

func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		DataDirectory: GetDefaultDataDir(),
	}
}

func DefaultUserConfig() *UserConfig {
	return &UserConfig{
		Backend: BackendDemo,
		DirectLine: DirectLineConfig{
			UserID: "user",
		},
		Ollama: OllamaConfig{
			Host:  "http://localhost:11434",
			Model: "llama3.1:latest",
		},
		Demo: DemoConfig{
			Responder: ResponderCanned,
			PaceMS:    120,
		},
		UI: UIConfig{
			TypingTimeoutSeconds: 0,
			Persist:              true,
		},
	}
}

func GenerateSystemConfigTemplate() string {
	return `# botchat System Configuration
# Location: ~/.config/botchat/settings.toml
# This file uses TOML format: https://toml.io

# Directory where the activity log, exports and user config are stored
data_directory = "~/.local/share/botchat"
`
}

func GenerateUserConfigTemplate() string {
	return `# botchat User Configuration
# Location: <data_directory>/config.toml
# This file uses TOML format: https://toml.io
# Every value can also come from the environment or a .env file
# (BOTCHAT_BACKEND, BOTCHAT_DIRECTLINE_SECRET, BOTCHAT_TENANT_ID, ...).

# Which bot to talk to: "demo", "directline" or "m365"
backend = "demo"

[directline]
# Direct Line secret or token (keep this out of version control)
secret = ""
# Leave empty for https://directline.botframework.com/v3/directline
domain = ""
user_id = "user"
locale = ""

[m365]
# Copilot Studio agent connection
tenant_id = ""
app_client_id = ""
environment_id = ""
agent_identifier = ""
# Direct Line compatible endpoint of the agent
endpoint = ""
# Bearer token obtained by your sign-in flow
token = ""

[ollama]
# Used by the demo backend when responder = "ollama"
host = "http://localhost:11434"
model = "llama3.1:latest"

[demo]
# "canned" replies or a local "ollama" model
responder = "canned"
# Delay between streamed chunks, in milliseconds
pace_ms = 120

[ui]
# Hide the typing indicator after this many seconds without a message (0 = never)
typing_timeout_seconds = 0
# Keep every activity in the local activity log
persist = true
`
}
