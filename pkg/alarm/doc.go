// Package alarm schedules callbacks that run inside the goroutine that armed them.
//
// A Scheduler owns a deadline-ordered list of events shared by every attached
// Thread. One background goroutine, started on the first install, tracks the
// earliest pending deadline and notifies owning threads whose events are due.
// It never runs callbacks itself: a notified Thread drains its own due events
// when its driver goroutine reaches a safe point and calls SafePoint.
//
// Handles returned to callers are non-owning references validated against a
// slot generation, so a handle to an event that was already freed is rejected
// instead of aliasing a newer event.
package alarm
