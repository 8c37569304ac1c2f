package shell

// ZshPlugin is the zsh hook source. preexec remembers the command line and
// precmd records it with its exit status, but only while a termtrace session
// is active.
const ZshPlugin = `# termtrace shell hook, generated by "termtrace hook zsh"
# Source this file from your ~/.zshrc:
#   source ~/.config/termtrace/termtrace.hook.zsh

_termtrace_session_file="${TERMTRACE_BASE_DIR:-$HOME/.termtrace}/session.json"
_termtrace_cmd=""

_termtrace_preexec() {
  _termtrace_cmd="$1"
}

_termtrace_precmd() {
  local code=$?
  local cmd="$_termtrace_cmd"
  _termtrace_cmd=""
  [[ -n "$cmd" ]] || return
  [[ -f "$_termtrace_session_file" ]] || return
  # Do not record termtrace itself.
  [[ "$cmd" =~ ^[[:space:]]*(.*/)?termtrace([[:space:]]|$) ]] && return
  termtrace record "$(date -u +%Y-%m-%dT%H:%M:%SZ)" "$cmd" "" "$code" 2>/dev/null
}

autoload -Uz add-zsh-hook
add-zsh-hook preexec _termtrace_preexec
add-zsh-hook precmd _termtrace_precmd
`
