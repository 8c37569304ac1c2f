package shell

// BashPlugin is the bash hook source. A DEBUG trap remembers the command
// line and PROMPT_COMMAND records it with its exit status while a termtrace
// session is active.
const BashPlugin = `# termtrace shell hook, generated by "termtrace hook bash"
# Source this file from your ~/.bashrc:
#   source ~/.config/termtrace/termtrace.hook.bash

_termtrace_session_file="${TERMTRACE_BASE_DIR:-$HOME/.termtrace}/session.json"
_termtrace_cmd=""

_termtrace_preexec() {
  [[ -n "$COMP_LINE" ]] && return
  [[ "$BASH_COMMAND" == "$PROMPT_COMMAND" || "$BASH_COMMAND" == _termtrace_* ]] && return
  [[ -z "$_termtrace_cmd" ]] && _termtrace_cmd="$BASH_COMMAND"
}

_termtrace_precmd() {
  local code=$?
  local cmd="$_termtrace_cmd"
  _termtrace_cmd=""
  [[ -n "$cmd" ]] || return
  [[ -f "$_termtrace_session_file" ]] || return
  [[ "$cmd" =~ ^[[:space:]]*(.*/)?termtrace([[:space:]]|$) ]] && return
  termtrace record "$(date -u +%Y-%m-%dT%H:%M:%SZ)" "$cmd" "" "$code" 2>/dev/null
}

trap '_termtrace_preexec' DEBUG
PROMPT_COMMAND="_termtrace_precmd${PROMPT_COMMAND:+;$PROMPT_COMMAND}"
`
