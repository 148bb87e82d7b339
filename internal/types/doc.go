/*
Package types defines the records shared by the compiler, the aggregator,
the lifecycle rules and the collaborator adapters.

# Records

TestRecord:
  - Test definition plus the state of its latest run
  - Owns its TestScenario, current ResultsReport and History
  - Field names follow the execution backend's JSON verbatim

TestScenario:
  - execution[0] holds concurrency, ramp-up, hold-for and the scenario name
  - scenarios holds exactly one entry under that name
  - Entries are InlineRequestScenario or ScriptScenario

ResultsReport:
  - Counters (throughput, succ, fail, bytes)
  - Average response, latency and connect times in seconds
  - Percentiles p100_0 down to p0_0
  - Optional rc error tally and per-label breakdown

HistoryEntry:
  - Immutable snapshot of a finished run, appended on reset

# Errors

Every error kind is a pointer type so callers can match with errors.As:
ValidationError, OutOfRangeError, MalformedJSONError, FileTooLargeError,
UnsupportedExtensionError, TransportError and TransitionError.
*/
package types
