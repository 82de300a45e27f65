// Package approvalworkflow runs the newsroom review pipeline.
//
// Journalists write articles that move from draft to submitted and are then
// published or rejected by peer review. Publishing needs a quorum of
// journalist and leader approvals; admins review as leaders. Each reviewer
// holds one decision per article, a single reject sends the article back, and
// resubmitting starts a fresh review cycle. The publish and reject
// transitions are conditional updates under the article row lock, so exactly
// one caller sees the transition and exactly one outbox event is written.
package approvalworkflow
