// Package http provides the JSON API of the briefings service.
//
// Public endpoints:
//   - GET /api/events/upcoming, GET /api/events/past: main talks as `eventDTO` lists.
//   - GET /api/events/{date}/{warmup}: one talk plus `has_warmup`. {date} is RFC 3339,
//     {warmup} is "1", "true" or "warmup" for the warmup track and anything else for
//     the main track.
//   - GET /api/invitations/{token}: candidate dates still open for the invitee.
//   - POST /api/invitations/{token}/confirm: books a date. Body: `confirmRequest`.
//     Response: {"first_confirmation", "event"}.
//   - GET /api/applications/slots: open warmup dates for the application form.
//   - POST /api/applications: submits a warmup application, 201 {"token"}.
//   - GET /api/applications/{token}: availability for an application.
//   - GET /healthz, GET /metrics.
//
// Admin endpoints require HTTP basic auth:
//   - POST /api/admin/invitations, GET /api/admin/invitations (status overview).
//   - GET /api/admin/events: every talk joined with the invitation that booked it.
//   - POST /api/admin/events/{date}/{warmup}/{channel}: re-runs one notifier channel
//     ("conf", "sched" or "calendar").
//   - GET /api/admin/applications: pending applications.
//   - POST /api/admin/applications/{token}/accept, POST /api/admin/applications/{token}/decline.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
