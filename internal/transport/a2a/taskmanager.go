package a2a

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"trpc.group/trpc-go/trpc-a2a-go/protocol"
	"trpc.group/trpc-go/trpc-a2a-go/taskmanager"

	"github.com/adcp-project/sales-agent/internal/db"
	"github.com/adcp-project/sales-agent/internal/dispatch"
	"github.com/adcp-project/sales-agent/internal/task"
)

// TaskManager implements taskmanager.TaskManager, routing A2A messages
// through the shared dispatcher instead of an LLM agent loop. Grounded on
// the teacher's a2a_pkg/a2a.ADKTaskManager: same method set, same pattern
// of persisting a Task record as the request is processed, generalized
// from agent-invocation results to AdCP skill results.
type TaskManager struct {
	dispatcher *dispatch.Dispatcher
	tasks      *task.Service
	pushConfig *task.PushConfigStore
}

func NewTaskManager(d *dispatch.Dispatcher, tasks *task.Service, pushConfig *task.PushConfigStore) taskmanager.TaskManager {
	return &TaskManager{dispatcher: d, tasks: tasks, pushConfig: pushConfig}
}

// OnSendMessage implements the non-streaming A2A entry point (spec.md
// §4.11): parse the message into one or more skill invocations, run each
// through the dispatcher, and return a Task reflecting the aggregate
// status per the terminal-state rules of spec.md §4.12.
func (m *TaskManager) OnSendMessage(ctx context.Context, request protocol.SendMessageParams) (*protocol.MessageResult, error) {
	t, err := m.process(ctx, &request.Message)
	if err != nil {
		return nil, err
	}
	return &protocol.MessageResult{Result: t}, nil
}

// OnSendMessageStream runs the same processing and emits it as a single
// terminal status-update event; the dispatcher's skill handlers are
// synchronous, so there is no genuine intermediate progress to stream.
func (m *TaskManager) OnSendMessageStream(ctx context.Context, request protocol.SendMessageParams) (<-chan protocol.StreamingMessageEvent, error) {
	ch := make(chan protocol.StreamingMessageEvent, 1)
	go func() {
		defer close(ch)
		t, err := m.process(ctx, &request.Message)
		if err != nil {
			ch <- protocol.StreamingMessageEvent{Result: failedStatusEvent(request.Message.TaskID, request.Message.ContextID, err)}
			return
		}
		ch <- protocol.StreamingMessageEvent{Result: &protocol.TaskStatusUpdateEvent{
			Kind:      "status-update",
			TaskID:    t.ID,
			ContextID: t.ContextID,
			Status:    t.Status,
			Final:     true,
		}}
	}()
	return ch, nil
}

func failedStatusEvent(taskID, contextID *string, err error) *protocol.TaskStatusUpdateEvent {
	id := ""
	if taskID != nil {
		id = *taskID
	}
	ctxID := ""
	if contextID != nil {
		ctxID = *contextID
	}
	return &protocol.TaskStatusUpdateEvent{
		Kind:      "status-update",
		TaskID:    id,
		ContextID: ctxID,
		Status: protocol.TaskStatus{
			State: protocol.TaskStateFailed,
			Message: &protocol.Message{
				Kind:      protocol.KindMessage,
				MessageID: uuid.New().String(),
				Role:      protocol.MessageRoleAgent,
				Parts:     []protocol.Part{protocol.NewTextPart(err.Error())},
			},
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
		Final: true,
	}
}

// process is the shared body of OnSendMessage/OnSendMessageStream, grounded
// on the Python original's on_message_send: explicit-skill invocations take
// priority over natural-language routing, every invocation's result becomes
// one artifact, and overall task state follows the terminal-state rules of
// spec.md §4.12 (all-failed -> failed, any pending-review creative or
// explicit "submitted" status -> submitted, otherwise completed).
func (m *TaskManager) process(ctx context.Context, msg *protocol.Message) (*protocol.Task, error) {
	log := logr.FromContextOrDiscard(ctx)

	contextID := stringOrNew(msg.ContextID)

	tc := TenantFromContext(ctx)
	ident := IdentityFromContext(ctx)
	authErr := AuthErrFromContext(ctx)

	invocations, naturalLanguage := parseSkillInvocations(msg)

	invocationType := db.InvocationExplicitSkill
	if naturalLanguage {
		invocationType = db.InvocationNaturalLanguage
	}

	requestedSkills := make([]string, 0, len(invocations))
	for _, inv := range invocations {
		requestedSkills = append(requestedSkills, inv.Skill)
	}

	principalID := ""
	tenantID := ""
	if ident != nil {
		principalID = ident.PrincipalID
		tenantID = ident.TenantID
	} else if tc != nil {
		tenantID = tc.TenantID
	}

	record, err := m.tasks.CreateTask(ctx, contextID, tenantID, principalID, requestedSkills, invocationType)
	if err != nil {
		return nil, fmt.Errorf("a2a: create task record: %w", err)
	}
	taskID := record.TaskID

	if len(invocations) == 0 {
		return m.capabilitiesTask(taskID, contextID), nil
	}

	artifacts := make([]protocol.Artifact, 0, len(invocations))
	succeeded := 0
	failed := 0
	submitted := false
	var resultForRecord map[string]any
	var errorMessages []string

	for i, inv := range invocations {
		result, terr := m.dispatcher.Dispatch(ctx, contextID, inv.Skill, inv.Parameters, ident, authErr, tc, "a2a")
		if terr != nil {
			failed++
			errorMessages = append(errorMessages, terr.Error())
			artifacts = append(artifacts, errorArtifact(i, terr))
			continue
		}
		succeeded++
		data := map[string]any(result.Data)
		if data == nil {
			data = map[string]any{}
		}
		if len(result.Errors) > 0 {
			errs := make([]map[string]any, 0, len(result.Errors))
			for _, e := range result.Errors {
				errs = append(errs, map[string]any{"kind": e.Kind, "code": e.Code, "message": e.Message})
			}
			data["errors"] = errs
		}
		if resultForRecord == nil {
			resultForRecord = data
		}
		if anyCreativePendingReview(data) || data["status"] == "submitted" || data["task_status"] == "submitted" {
			submitted = true
		}
		artifacts = append(artifacts, skillResultArtifact(i, inv.Skill, data))
	}

	state := protocol.TaskStateCompleted
	status := "completed"
	switch {
	case failed > 0 && succeeded == 0:
		state = protocol.TaskStateFailed
		status = "failed"
	case submitted:
		state = protocol.TaskStateSubmitted
		status = "submitted"
	}

	var errPayload map[string]any
	if len(errorMessages) > 0 {
		errPayload = map[string]any{"messages": errorMessages}
	}
	if _, err := m.tasks.UpdateStatus(ctx, taskID, status, resultForRecord, errPayload); err != nil {
		log.Error(err, "failed to persist task status", "taskID", taskID)
	}

	// A submitted task carries no result artifacts: the work isn't done yet
	// (spec.md §4.11, §8's "no artifacts are attached" invariant).
	if state == protocol.TaskStateSubmitted {
		artifacts = nil
	}

	return &protocol.Task{
		ID:        taskID,
		ContextID: contextID,
		Kind:      "task",
		Status:    protocol.TaskStatus{State: state, Timestamp: time.Now().UTC().Format(time.RFC3339)},
		Artifacts: artifacts,
	}, nil
}

func stringOrNew(s *string) string {
	if s != nil && *s != "" {
		return *s
	}
	return uuid.New().String()
}

func anyCreativePendingReview(data map[string]any) bool {
	creatives, ok := data["creatives"].([]any)
	if !ok {
		return false
	}
	for _, c := range creatives {
		m, ok := c.(map[string]any)
		if !ok {
			continue
		}
		if m["status"] == "pending_review" {
			return true
		}
	}
	return false
}

func skillResultArtifact(index int, skill string, data map[string]any) protocol.Artifact {
	return protocol.Artifact{
		ArtifactID: fmt.Sprintf("skill_result_%d", index+1),
		Name:       skill + "_result",
		Parts:      []protocol.Part{&protocol.DataPart{Kind: "data", Data: data}},
	}
}

func errorArtifact(index int, terr *dispatch.TransportError) protocol.Artifact {
	return protocol.Artifact{
		ArtifactID: fmt.Sprintf("skill_result_%d", index+1),
		Name:       "error_result",
		Parts: []protocol.Part{&protocol.DataPart{Kind: "data", Data: map[string]any{
			"error": terr.Error(),
			"kind":  string(terr.Kind),
		}}},
	}
}

// capabilitiesTask is the general-help response when a message matches
// neither an explicit skill invocation nor a natural-language keyword
// (spec.md §4.11).
func (m *TaskManager) capabilitiesTask(taskID, contextID string) *protocol.Task {
	capabilities := map[string]any{
		"supported_queries": []string{"product_catalog", "campaign_creation"},
		"example_queries": []string{
			"What advertising products do you have available?",
			"How do I create a media buy?",
		},
	}
	return &protocol.Task{
		ID:        taskID,
		ContextID: contextID,
		Kind:      "task",
		Status:    protocol.TaskStatus{State: protocol.TaskStateCompleted, Timestamp: time.Now().UTC().Format(time.RFC3339)},
		Artifacts: []protocol.Artifact{{
			ArtifactID: "capabilities_1",
			Name:       "capabilities",
			Parts:      []protocol.Part{&protocol.DataPart{Kind: "data", Data: capabilities}},
		}},
	}
}

// OnGetTask retrieves a previously persisted task by id (spec.md §4.12).
func (m *TaskManager) OnGetTask(ctx context.Context, params protocol.TaskQueryParams) (*protocol.Task, error) {
	rec, err := m.tasks.Get(ctx, params.ID)
	if err != nil {
		return nil, fmt.Errorf("a2a: get task: %w", err)
	}
	if rec == nil {
		return nil, nil
	}
	return recordToTask(rec), nil
}

// OnCancelTask marks a task canceled; AdCP skill handlers run to
// completion synchronously, so cancellation only affects a task's
// recorded status, never an in-flight handler.
func (m *TaskManager) OnCancelTask(ctx context.Context, params protocol.TaskIDParams) (*protocol.Task, error) {
	rec, err := m.tasks.Get(ctx, params.ID)
	if err != nil {
		return nil, fmt.Errorf("a2a: get task: %w", err)
	}
	if rec == nil {
		return nil, nil
	}
	rec, err = m.tasks.UpdateStatus(ctx, rec.TaskID, "canceled", map[string]any(rec.ResultJSON), nil)
	if err != nil {
		return nil, fmt.Errorf("a2a: cancel task: %w", err)
	}
	return recordToTask(rec), nil
}

// OnPushNotificationSet registers a webhook target for a task's principal
// (spec.md §4.12).
func (m *TaskManager) OnPushNotificationSet(ctx context.Context, params protocol.TaskPushNotificationConfig) (*protocol.TaskPushNotificationConfig, error) {
	rec, err := m.tasks.Get(ctx, params.TaskID)
	if err != nil {
		return nil, fmt.Errorf("a2a: get task: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("a2a: task %q not found", params.TaskID)
	}

	cfg := &db.PushNotificationConfig{URL: params.PushNotificationConfig.URL}
	if params.PushNotificationConfig.Token != nil {
		cfg.ValidationToken = params.PushNotificationConfig.Token
	}
	if auth := params.PushNotificationConfig.Authentication; auth != nil && len(auth.Schemes) > 0 {
		scheme := auth.Schemes[0]
		cfg.AuthScheme = &scheme
		if auth.Credentials != nil {
			cfg.AuthCredentials = auth.Credentials
		}
	}

	saved, err := m.pushConfig.Save(ctx, rec.TenantID, rec.PrincipalID, cfg)
	if err != nil {
		return nil, fmt.Errorf("a2a: save push config: %w", err)
	}

	if err := m.tasks.SetPushConfig(ctx, rec.TaskID, saved.ID); err != nil {
		return nil, fmt.Errorf("a2a: link push config to task: %w", err)
	}

	return &params, nil
}

// OnPushNotificationGet retrieves the push config registered for a task.
func (m *TaskManager) OnPushNotificationGet(ctx context.Context, params protocol.TaskIDParams) (*protocol.TaskPushNotificationConfig, error) {
	rec, err := m.tasks.Get(ctx, params.ID)
	if err != nil {
		return nil, fmt.Errorf("a2a: get task: %w", err)
	}
	if rec == nil || rec.PushConfigID == nil {
		return nil, nil
	}
	cfg, err := m.pushConfig.Get(ctx, rec.TenantID, rec.PrincipalID, *rec.PushConfigID)
	if err != nil || cfg == nil {
		return nil, err
	}
	out := &protocol.TaskPushNotificationConfig{
		TaskID: rec.TaskID,
		PushNotificationConfig: protocol.PushNotificationConfig{
			URL:   cfg.URL,
			Token: cfg.ValidationToken,
		},
	}
	if cfg.AuthScheme != nil {
		out.PushNotificationConfig.Authentication = &protocol.PushNotificationAuthenticationInfo{
			Schemes:     []string{*cfg.AuthScheme},
			Credentials: cfg.AuthCredentials,
		}
	}
	return out, nil
}

// OnResubscribe replays a task's terminal status to a newly attached
// stream; AdCP tasks have no persisted event history beyond their final
// status, so resubscription yields at most one event.
func (m *TaskManager) OnResubscribe(ctx context.Context, params protocol.TaskIDParams) (<-chan protocol.StreamingMessageEvent, error) {
	rec, err := m.tasks.Get(ctx, params.ID)
	if err != nil {
		return nil, fmt.Errorf("a2a: get task: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("a2a: task not found: %s", params.ID)
	}

	ch := make(chan protocol.StreamingMessageEvent, 1)
	go func() {
		defer close(ch)
		t := recordToTask(rec)
		select {
		case ch <- protocol.StreamingMessageEvent{Result: &protocol.TaskStatusUpdateEvent{
			Kind:      "status-update",
			TaskID:    t.ID,
			ContextID: t.ContextID,
			Status:    t.Status,
			Final:     true,
		}}:
		case <-ctx.Done():
		}
	}()
	return ch, nil
}

func recordToTask(rec *db.TaskRecord) *protocol.Task {
	data := map[string]any(rec.ResultJSON)
	var artifacts []protocol.Artifact
	if len(data) > 0 && rec.Status != "submitted" {
		artifacts = []protocol.Artifact{{
			ArtifactID: "result",
			Name:       "result",
			Parts:      []protocol.Part{&protocol.DataPart{Kind: "data", Data: data}},
		}}
	}
	return &protocol.Task{
		ID:        rec.TaskID,
		ContextID: rec.ContextID,
		Kind:      "task",
		Status:    protocol.TaskStatus{State: protocol.TaskState(rec.Status), Timestamp: rec.UpdatedAt.UTC().Format(time.RFC3339)},
		Artifacts: artifacts,
	}
}
