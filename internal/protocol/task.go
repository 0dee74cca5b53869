package protocol

// InstallTaskStatus is the lifecycle state of an install task or of one
// plugin within it.
type InstallTaskStatus string

const (
	TaskPending InstallTaskStatus = "pending"
	TaskRunning InstallTaskStatus = "running"
	TaskSuccess InstallTaskStatus = "success"
	TaskFailed  InstallTaskStatus = "failed"
)

// Finished reports whether the status is terminal.
func (s InstallTaskStatus) Finished() bool {
	return s == TaskSuccess || s == TaskFailed
}

// InstallTaskPluginStatus is the progress of one plugin within a task.
type InstallTaskPluginStatus struct {
	PluginUniqueIdentifier string            `json:"plugin_unique_identifier"`
	PluginID               string            `json:"plugin_id"`
	Status                 InstallTaskStatus `json:"status"`
	Message                string            `json:"message"`
	Icon                   string            `json:"icon"`
}

// InstallTask is a daemon-tracked install job. The daemon owns its lifecycle;
// clients only poll it.
type InstallTask struct {
	ID               string                    `json:"id,omitempty"`
	Status           InstallTaskStatus         `json:"status"`
	TotalPlugins     int                       `json:"total_plugins"`
	CompletedPlugins int                       `json:"completed_plugins"`
	Plugins          []InstallTaskPluginStatus `json:"plugins"`
}

// InstallTaskStartResponse is returned when an install or upgrade is queued.
type InstallTaskStartResponse struct {
	AllInstalled bool   `json:"all_installed"`
	TaskID       string `json:"task_id"`
}
