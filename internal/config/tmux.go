package config

// DefaultTmuxConf is written to config/tmux.conf on first run. It configures
// the dedicated multiplexer socket's server-wide behavior: no status line
// (the UI renders its own), a deep scrollback, mouse support, and a minimal
// keybinding surface so agent CLIs never see accidental multiplexer
// shortcuts meant for the user's own tmux session.
const DefaultTmuxConf = `set -g status off
set -g history-limit 10000
set -g mouse on
unbind-key -a
bind-key -n C-s switch-pane
bind-key -n C-\ detach-client
bind-key -n WheelUpPane copy-mode -e
bind-key -n WheelDownPane send-keys -M
`
