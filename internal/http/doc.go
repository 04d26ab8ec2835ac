// Package http exposes the taskflow JSON API.
//
// Public routes:
//   - POST /api/auth/register: {"name","email","password","confirmPassword"} -> 201 {"message","user"}.
//   - POST /api/auth/login: {"email","password"} -> 201 {"token","expiresAt","user"}. The token is
//     also returned in the `X-Session-Token` header and a `session_token` cookie.
//   - POST /api/auth/logout: revokes the bearer or cookie token, 204.
//   - GET /healthz, GET /metrics.
//
// Every other route requires a session and otherwise answers 401 before any
// data access:
//   - GET /api/auth/session, POST /api/user/ensure-workspace.
//   - GET|POST /api/workspaces, GET /api/workspaces/{id}/members.
//   - GET|POST /api/projects (?workspaceId=), GET|DELETE /api/projects/{id},
//     GET|POST|DELETE /api/projects/{id}/members (DELETE takes ?userId=).
//   - GET|POST /api/tasks (?projectId=&status=&assigneeId=), GET|PATCH|DELETE /api/tasks/{id}.
//     PATCH leaves absent keys alone and clears nullable fields sent as null.
//   - GET|POST /api/tasks/{id}/comments, DELETE /api/comments/{id}.
//   - GET|POST /api/tasks/{id}/time-entries, POST /api/tasks/{id}/time (manual),
//     DELETE /api/time-entries/{id}. Durations are seconds.
//   - GET|POST|DELETE /api/timer, POST /api/timer/stop.
//   - GET|POST /api/meetings (?projectId=). Durations are minutes.
//   - GET /api/dashboard/stats, GET /api/notifications.
//
// Errors are {"error","code","details"?}: 400 validation_failed or rule_violation,
// 401 unauthorized, 403 forbidden, 404 not_found, 409 already_exists or
// timer_running, 500 internal_error. Request and response DTOs live in dto.go
// and next to their handlers.
package http
