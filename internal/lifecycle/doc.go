/*
Package lifecycle holds the rules of a test's run states.

	created -> running -> complete | failed | cancelled
	complete | failed | cancelled -> created (Reset) or running (Start)

Predicates answer whether an action is allowed and never fail. Transitions
take a record by value and return a new one; a transition the current state
does not allow returns a *types.TransitionError and the input unchanged.

Only one test may run at a time across the whole fleet. Callers pass the
current "any task running" flag to CanStart and Start on every check.
*/
package lifecycle
