// Package scheduler adds cron recurrence on top of package alarm. A Job is an
// ordinary alarm owned by one thread whose callback reinstalls it at the next
// occurrence of a 5-field cron expression after every run.
//
// Occurrences are computed with gronx, so the resolution is one minute. The
// alarm scheduler's max-sleep-cap still applies, so wall-clock steps (NTP,
// DST, suspend) move the next run at most DefaultMaxSleep late.
package scheduler
