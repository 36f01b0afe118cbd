package registrar

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// MemoryEntry is one saved agent memory.
type MemoryEntry struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Goal is one tracked agent goal.
type Goal struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Trigger is one scheduled activation. Schedule is a standard
// five-field cron expression, validated at creation time.
type Trigger struct {
	ID        string    `json:"id"`
	Schedule  string    `json:"schedule"`
	Payload   string    `json:"payload,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Plan is one multi-step plan the agent has recorded.
type Plan struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Steps     []string  `json:"steps"`
	CreatedAt time.Time `json:"created_at"`
}

// Notification is one queued outbound notification.
type Notification struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Pulse is one emitted activity signal: a lightweight marker the
// platform aggregates into an activity feed.
type Pulse struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Host is the in-process state backing the builtin gateway tools:
// memories, goals, key-value data, triggers, plans and notifications.
// It stands in for the wider platform the gateway normally talks to,
// so the builtin catalog stays executable in isolation.
type Host struct {
	mu sync.RWMutex

	memories      []MemoryEntry
	goals         map[string]*Goal
	goalOrder     []string
	customData    map[string]string
	personalData  map[string]string
	triggers      map[string]*Trigger
	triggerOrder  []string
	plans         map[string]*Plan
	planOrder     []string
	notifications []Notification
	pulses        []Pulse
	config        map[string]string
	lastHeartbeat time.Time
}

var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// NewHost creates an empty host state, optionally seeded with
// read-only config values exposed through the config_get tool.
func NewHost(config map[string]string) *Host {
	if config == nil {
		config = map[string]string{}
	}
	return &Host{
		goals:        make(map[string]*Goal),
		customData:   make(map[string]string),
		personalData: make(map[string]string),
		triggers:     make(map[string]*Trigger),
		plans:        make(map[string]*Plan),
		config:       config,
	}
}

// SaveMemory appends a memory entry and returns it.
func (h *Host) SaveMemory(content string, tags []string) MemoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	entry := MemoryEntry{
		ID:        uuid.New().String(),
		Content:   content,
		Tags:      tags,
		CreatedAt: time.Now(),
	}
	h.memories = append(h.memories, entry)
	return entry
}

// SearchMemories returns entries whose content or tags contain the
// query, newest first, capped at limit.
func (h *Host) SearchMemories(query string, limit int) []MemoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	query = strings.ToLower(query)
	var matches []MemoryEntry
	for i := len(h.memories) - 1; i >= 0; i-- {
		entry := h.memories[i]
		haystack := strings.ToLower(entry.Content + " " + strings.Join(entry.Tags, " "))
		if query == "" || strings.Contains(haystack, query) {
			matches = append(matches, entry)
			if limit > 0 && len(matches) >= limit {
				break
			}
		}
	}
	return matches
}

// SetGoal creates or updates a goal by title and returns it.
func (h *Host) SetGoal(title, status string) Goal {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, id := range h.goalOrder {
		if h.goals[id].Title == title {
			h.goals[id].Status = status
			h.goals[id].UpdatedAt = time.Now()
			return *h.goals[id]
		}
	}

	goal := &Goal{
		ID:        uuid.New().String(),
		Title:     title,
		Status:    status,
		UpdatedAt: time.Now(),
	}
	h.goals[goal.ID] = goal
	h.goalOrder = append(h.goalOrder, goal.ID)
	return *goal
}

// Goals returns all goals in creation order.
func (h *Host) Goals() []Goal {
	h.mu.RLock()
	defer h.mu.RUnlock()

	goals := make([]Goal, 0, len(h.goalOrder))
	for _, id := range h.goalOrder {
		goals = append(goals, *h.goals[id])
	}
	return goals
}

// SetCustomData stores an agent-scoped key-value pair.
func (h *Host) SetCustomData(key, value string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.customData[key] = value
}

// GetCustomData returns the stored value for key.
func (h *Host) GetCustomData(key string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	v, ok := h.customData[key]
	return v, ok
}

// SetPersonalData stores a user-profile key-value pair.
func (h *Host) SetPersonalData(key, value string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.personalData[key] = value
}

// GetPersonalData returns the stored profile value for key.
func (h *Host) GetPersonalData(key string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	v, ok := h.personalData[key]
	return v, ok
}

// PersonalDataKeys returns every stored profile key, sorted.
func (h *Host) PersonalDataKeys() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	keys := make([]string, 0, len(h.personalData))
	for k := range h.personalData {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CreateTrigger validates the cron schedule and stores a trigger.
func (h *Host) CreateTrigger(schedule, payload string) (Trigger, error) {
	if _, err := cronParser.Parse(schedule); err != nil {
		return Trigger{}, fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	trigger := &Trigger{
		ID:        uuid.New().String(),
		Schedule:  schedule,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
	h.triggers[trigger.ID] = trigger
	h.triggerOrder = append(h.triggerOrder, trigger.ID)
	return *trigger, nil
}

// Triggers returns all triggers in creation order.
func (h *Host) Triggers() []Trigger {
	h.mu.RLock()
	defer h.mu.RUnlock()

	triggers := make([]Trigger, 0, len(h.triggerOrder))
	for _, id := range h.triggerOrder {
		triggers = append(triggers, *h.triggers[id])
	}
	return triggers
}

// DeleteTrigger removes a trigger by ID, reporting whether it existed.
func (h *Host) DeleteTrigger(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.triggers[id]; !exists {
		return false
	}
	delete(h.triggers, id)
	for i, tid := range h.triggerOrder {
		if tid == id {
			h.triggerOrder = append(h.triggerOrder[:i], h.triggerOrder[i+1:]...)
			break
		}
	}
	return true
}

// CreatePlan records a plan and returns it.
func (h *Host) CreatePlan(title string, steps []string) Plan {
	h.mu.Lock()
	defer h.mu.Unlock()

	plan := &Plan{
		ID:        uuid.New().String(),
		Title:     title,
		Steps:     steps,
		CreatedAt: time.Now(),
	}
	h.plans[plan.ID] = plan
	h.planOrder = append(h.planOrder, plan.ID)
	return *plan
}

// Plans returns all plans in creation order.
func (h *Host) Plans() []Plan {
	h.mu.RLock()
	defer h.mu.RUnlock()

	plans := make([]Plan, 0, len(h.planOrder))
	for _, id := range h.planOrder {
		plans = append(plans, *h.plans[id])
	}
	return plans
}

// Notify queues an outbound notification and returns it.
func (h *Host) Notify(message string) Notification {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := Notification{
		ID:        uuid.New().String(),
		Message:   message,
		CreatedAt: time.Now(),
	}
	h.notifications = append(h.notifications, n)
	return n
}

// Notifications returns queued notifications, newest last.
func (h *Host) Notifications() []Notification {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Notification, len(h.notifications))
	copy(out, h.notifications)
	return out
}

// EmitPulse records an activity signal and returns it.
func (h *Host) EmitPulse(kind, detail string) Pulse {
	h.mu.Lock()
	defer h.mu.Unlock()

	p := Pulse{
		ID:        uuid.New().String(),
		Kind:      kind,
		Detail:    detail,
		CreatedAt: time.Now(),
	}
	h.pulses = append(h.pulses, p)
	return p
}

// Pulses returns emitted pulses, oldest first.
func (h *Host) Pulses() []Pulse {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Pulse, len(h.pulses))
	copy(out, h.pulses)
	return out
}

// Heartbeat records liveness and returns the previous beat time.
func (h *Host) Heartbeat() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()

	prev := h.lastHeartbeat
	h.lastHeartbeat = time.Now()
	return prev
}

// ConfigValue returns a read-only config value by key.
func (h *Host) ConfigValue(key string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	v, ok := h.config[key]
	return v, ok
}

// ConfigKeys returns every config key, sorted.
func (h *Host) ConfigKeys() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	keys := make([]string, 0, len(h.config))
	for k := range h.config {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
