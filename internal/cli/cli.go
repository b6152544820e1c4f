// Package cli parses aurora command-line arguments.
package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandRun        Command = "run"
	CommandServe      Command = "serve"
	CommandListen     Command = "listen"
	CommandSay        Command = "say"
	CommandDismiss    Command = "dismiss"
	CommandCredential Command = "credential"
	CommandStatus     Command = "status"
	CommandTranscript Command = "transcript"
	CommandVoices     Command = "voices"
	CommandDevices    Command = "devices"
	CommandDoctor     Command = "doctor"
	CommandSchema     Command = "schema"
	CommandVersion    Command = "version"
	CommandHelp       Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandRun:        {},
	CommandServe:      {},
	CommandListen:     {},
	CommandSay:        {},
	CommandDismiss:    {},
	CommandCredential: {},
	CommandStatus:     {},
	CommandTranscript: {},
	CommandVoices:     {},
	CommandDevices:    {},
	CommandDoctor:     {},
	CommandSchema:     {},
	CommandVersion:    {},
	CommandHelp:       {},
}

// textCommands take the rest of argv as one text argument.
var textCommands = map[Command]struct{}{
	CommandSay:        {},
	CommandCredential: {},
}

type Parsed struct {
	Command    Command
	ConfigPath string
	Text       string
	ShowHelp   bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp

			rest := args[i+1:]
			if _, ok := textCommands[cmd]; ok {
				text := strings.TrimSpace(strings.Join(rest, " "))
				if text == "" {
					return Parsed{}, fmt.Errorf("command %q requires text", arg)
				}
				parsed.Text = text
				return parsed, nil
			}
			if len(rest) > 0 {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}
			return parsed, nil
		}
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command> [text]

Commands:
  run             Start the assistant with the terminal UI
  serve           Start the assistant headless (IPC + optional NATS bridge)
  listen          Toggle voice capture on the running assistant
  say TEXT        Submit typed text to the running assistant
  dismiss         Dismiss the current error message
  credential KEY  Set the inference credential on the running assistant
  status          Print current state
  transcript      Print the conversation transcript
  voices          List synthesizer voices and the selected one
  devices         List audio input devices
  doctor          Run configuration and environment checks
  schema          Print the config JSON schema
  version         Print version information
  help            Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/aurora/config.jsonc)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
