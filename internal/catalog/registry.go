package catalog

var (
	everyMode       = []Mode{ModeWorker, ModeCoordinator, ModeCoordinatedWorker, ModeCoordinatedCoordinator}
	coordinatorOnly = []Mode{ModeCoordinator, ModeCoordinatedCoordinator}
)

// buildGroups returns the metadata used when a group is collapsed into a
// single brace line.
func buildGroups() []Group {
	return []Group{
		{Name: RootGroup, Prefix: RootCommand, Description: "Identity, status and command reference"},
		{Name: "task", Prefix: RootCommand + " task", Description: "Task inspection and management"},
		{Name: "session", Prefix: RootCommand + " session", Description: "Session inspection, messaging and spawning"},
		{Name: "project", Prefix: RootCommand + " project", Description: "Project inspection and management"},
		{Name: "team-member", Prefix: RootCommand + " team-member", Description: "Team member roster"},
		{Name: "master", Prefix: RootCommand + " master", Description: "Cross-project workspace view (master sessions only)"},
	}
}

// buildRegistry returns every command with its metadata, in canonical order.
func buildRegistry() []Entry {
	return []Entry{
		// === ROOT ===
		{
			ID:           "whoami",
			Description:  "Print the current session identity, mode and team member",
			Syntax:       "maestro whoami",
			Group:        RootGroup,
			AllowedModes: everyMode,
			Core:         true,
		},
		{
			ID:           "status",
			Description:  "Summarize the session's tasks and their current status",
			Syntax:       "maestro status",
			Group:        RootGroup,
			AllowedModes: everyMode,
			Core:         true,
		},
		{
			ID:           "commands",
			Description:  "List the commands available to this session",
			Syntax:       "maestro commands [--full]",
			Group:        RootGroup,
			AllowedModes: everyMode,
			Core:         true,
		},
		{
			ID:               "debug-prompt",
			Description:      "Dump the exact system and task prompts sent to the agent",
			Syntax:           "maestro debug-prompt [--manifest <path>]",
			Group:            RootGroup,
			AllowedModes:     everyMode,
			HiddenFromPrompt: true,
		},

		// === TASK ===
		{
			ID:           "task:list",
			Description:  "List tasks in the project",
			Syntax:       "maestro task list [--status <status>] [--parent <taskId>]",
			Group:        "task",
			AllowedModes: everyMode,
		},
		{
			ID:           "task:get",
			Description:  "Show a task with its description and acceptance criteria",
			Syntax:       "maestro task get <taskId>",
			Group:        "task",
			AllowedModes: everyMode,
		},
		{
			ID:           "task:children",
			Description:  "List the subtasks of a task",
			Syntax:       "maestro task children <taskId>",
			Group:        "task",
			AllowedModes: everyMode,
		},
		{
			ID:           "task:create",
			Description:  "Create a task or subtask",
			Syntax:       `maestro task create "<title>" [--desc "<description>"] [--priority <p>] [--parent <taskId>]`,
			Group:        "task",
			AllowedModes: coordinatorOnly,
		},
		{
			ID:           "task:edit",
			Description:  "Edit a task's title, description or priority",
			Syntax:       `maestro task edit <taskId> [--title "<title>"] [--desc "<description>"] [--priority <p>]`,
			Group:        "task",
			AllowedModes: coordinatorOnly,
		},
		{
			ID:           "task:delete",
			Description:  "Delete a task",
			Syntax:       "maestro task delete <taskId>",
			Group:        "task",
			AllowedModes: coordinatorOnly,
		},
		{
			ID:           "task:report:progress",
			Description:  "Report progress on a task",
			Syntax:       `maestro task report progress <taskId> "<message>"`,
			Group:        "task",
			AllowedModes: everyMode,
		},
		{
			ID:           "task:report:complete",
			Description:  "Mark a task complete with a summary",
			Syntax:       `maestro task report complete <taskId> "<summary>"`,
			Group:        "task",
			AllowedModes: everyMode,
		},
		{
			ID:           "task:report:blocked",
			Description:  "Report that a task is blocked and why",
			Syntax:       `maestro task report blocked <taskId> "<reason>"`,
			Group:        "task",
			AllowedModes: everyMode,
		},
		{
			ID:           "task:report:error",
			Description:  "Report an unrecoverable error on a task",
			Syntax:       `maestro task report error <taskId> "<description>"`,
			Group:        "task",
			AllowedModes: everyMode,
		},
		{
			ID:           "task:docs:add",
			Description:  "Attach a document to a task",
			Syntax:       `maestro task docs add <taskId> "<title>" --file <filePath>`,
			Group:        "task",
			AllowedModes: everyMode,
		},
		{
			ID:           "task:docs:list",
			Description:  "List documents attached to a task",
			Syntax:       "maestro task docs list <taskId>",
			Group:        "task",
			AllowedModes: everyMode,
		},

		// === SESSION ===
		{
			ID:           "session:info",
			Description:  "Show the current session",
			Syntax:       "maestro session info",
			Group:        "session",
			AllowedModes: everyMode,
			Core:         true,
		},
		{
			ID:               "session:register",
			Description:      "Register the session with the orchestrator (hook use)",
			Group:            "session",
			AllowedModes:     everyMode,
			Core:             true,
			HiddenFromPrompt: true,
		},
		{
			ID:               "session:complete",
			Description:      "Mark the session complete (hook use)",
			Group:            "session",
			AllowedModes:     everyMode,
			Core:             true,
			HiddenFromPrompt: true,
		},
		{
			ID:           "session:list",
			Description:  "List sessions in the project",
			Syntax:       "maestro session list [--status <status>]",
			Group:        "session",
			AllowedModes: coordinatorOnly,
		},
		{
			ID:           "session:spawn",
			Description:  "Spawn a worker session for a task",
			Syntax:       "maestro session spawn --task <taskId> [--team-member-id <id>] [--mode <mode>]",
			Group:        "session",
			AllowedModes: coordinatorOnly,
		},
		{
			ID:           "session:watch",
			Description:  "Watch spawned sessions until they finish",
			Syntax:       "maestro session watch <sessionId>[,<sessionId>...]",
			Group:        "session",
			AllowedModes: coordinatorOnly,
		},
		{
			ID:           "session:logs",
			Description:  "Read the recent output of a spawned session",
			Syntax:       "maestro session logs <sessionId> [--tail <n>]",
			Group:        "session",
			AllowedModes: coordinatorOnly,
		},
		{
			ID:           "session:prompt",
			Description:  "Send input to a running session",
			Syntax:       `maestro session prompt <sessionId> --message "<text>"`,
			Group:        "session",
			AllowedModes: coordinatorOnly,
		},
		{
			ID:           "session:notify",
			Description:  "Send a message to another session",
			Syntax:       `maestro session notify <sessionId> --message "<text>"`,
			Group:        "session",
			AllowedModes: everyMode,
		},
		{
			ID:           "session:mail:read",
			Description:  "Read messages sent to this session",
			Syntax:       "maestro session mail read",
			Group:        "session",
			AllowedModes: everyMode,
		},
		{
			ID:           "session:report:progress",
			Description:  "Report session-level progress",
			Syntax:       `maestro session report progress "<message>"`,
			Group:        "session",
			AllowedModes: everyMode,
		},
		{
			ID:           "session:report:complete",
			Description:  "Report that the session's work is complete",
			Syntax:       `maestro session report complete "<summary>"`,
			Group:        "session",
			AllowedModes: everyMode,
		},
		{
			ID:           "session:report:blocked",
			Description:  "Report that the session is blocked",
			Syntax:       `maestro session report blocked "<reason>"`,
			Group:        "session",
			AllowedModes: everyMode,
		},
		{
			ID:           "session:report:error",
			Description:  "Report a session-level error",
			Syntax:       `maestro session report error "<description>"`,
			Group:        "session",
			AllowedModes: everyMode,
		},
		{
			ID:           "session:docs:add",
			Description:  "Attach a document to the session",
			Syntax:       `maestro session docs add "<title>" --file <filePath>`,
			Group:        "session",
			AllowedModes: everyMode,
		},
		{
			ID:           "session:docs:list",
			Description:  "List documents attached to the session",
			Syntax:       "maestro session docs list",
			Group:        "session",
			AllowedModes: everyMode,
		},

		// === PROJECT ===
		{
			ID:           "project:get",
			Description:  "Show the current project",
			Syntax:       "maestro project get [<projectId>]",
			Group:        "project",
			AllowedModes: everyMode,
		},
		{
			ID:           "project:list",
			Description:  "List projects",
			Group:        "project",
			AllowedModes: coordinatorOnly,
		},
		{
			ID:           "project:create",
			Description:  "Create a project",
			Syntax:       `maestro project create "<name>" --dir <path>`,
			Group:        "project",
			AllowedModes: coordinatorOnly,
		},
		{
			ID:           "project:delete",
			Description:  "Delete a project",
			Syntax:       "maestro project delete <projectId>",
			Group:        "project",
			AllowedModes: coordinatorOnly,
		},

		// === TEAM MEMBER ===
		{
			ID:           "team-member:get",
			Description:  "Show a team member's profile",
			Syntax:       "maestro team-member get <teamMemberId>",
			Group:        "team-member",
			AllowedModes: everyMode,
		},
		{
			ID:           "team-member:list",
			Description:  "List team members available for spawning",
			Group:        "team-member",
			AllowedModes: coordinatorOnly,
		},
		{
			ID:           "team-member:create",
			Description:  "Create a team member",
			Syntax:       `maestro team-member create "<name>" --role "<role>" [--avatar <emoji>] [--mode <mode>]`,
			Group:        "team-member",
			AllowedModes: coordinatorOnly,
		},
		{
			ID:           "team-member:edit",
			Description:  "Edit a team member",
			Syntax:       `maestro team-member edit <teamMemberId> [--name "<name>"] [--role "<role>"]`,
			Group:        "team-member",
			AllowedModes: coordinatorOnly,
		},
		{
			ID:           "team-member:archive",
			Description:  "Archive a team member",
			Syntax:       "maestro team-member archive <teamMemberId>",
			Group:        "team-member",
			AllowedModes: coordinatorOnly,
		},

		// === MASTER ===
		{
			ID:           "master:projects",
			Description:  "List every project in the workspace",
			Group:        "master",
			AllowedModes: everyMode,
			MasterScoped: true,
		},
		{
			ID:           "master:tasks",
			Description:  "List tasks across projects",
			Syntax:       "maestro master tasks [--project <projectId>]",
			Group:        "master",
			AllowedModes: everyMode,
			MasterScoped: true,
		},
		{
			ID:           "master:sessions",
			Description:  "List sessions across projects",
			Syntax:       "maestro master sessions [--project <projectId>]",
			Group:        "master",
			AllowedModes: everyMode,
			MasterScoped: true,
		},
		{
			ID:           "master:context",
			Description:  "Print a workspace-wide context summary",
			Group:        "master",
			AllowedModes: everyMode,
			MasterScoped: true,
		},
	}
}
