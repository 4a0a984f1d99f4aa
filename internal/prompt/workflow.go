package prompt

import "github.com/maestro-cli/maestro/internal/catalog"

// Workflow text is content the agent follows; the composer only embeds it.

const workerWorkflow = `You are a worker. Complete the assigned tasks yourself.
1. Read each task with ` + "`maestro task get <taskId>`" + ` before starting.
2. Report progress at meaningful milestones with ` + "`maestro task report progress`" + `.
3. If you are blocked, report it immediately with ` + "`maestro task report blocked`" + ` and explain what you need.
4. When a task meets its acceptance criteria, report it complete with a short summary.`

const coordinatedWorkerWorkflow = workerWorkflow + `
5. A coordinator is supervising you. Check ` + "`maestro session mail read`" + ` between steps and follow its directions.`

const coordinatorWorkflow = `You are a coordinator. Do not implement tasks yourself.
1. Analyze the assigned tasks and break them into subtasks small enough for one worker.
2. Decide an execution order: subtasks without dependencies can run in parallel batches; dependent subtasks wait for their prerequisites.
3. Spawn one worker session per subtask with ` + "`maestro session spawn`" + `, choosing the team member whose role fits.
4. Watch spawned sessions, answer their questions, and unblock them.
5. Verify each result against its acceptance criteria before reporting the parent task complete.`

const coordinatedCoordinatorWorkflow = coordinatorWorkflow + `
6. You report to a parent coordinator. Escalate anything you cannot resolve with ` + "`maestro session notify`" + `.`

func workflowFor(mode catalog.Mode) string {
	switch mode {
	case catalog.ModeCoordinator:
		return coordinatorWorkflow
	case catalog.ModeCoordinatedCoordinator:
		return coordinatedCoordinatorWorkflow
	case catalog.ModeCoordinatedWorker:
		return coordinatedWorkerWorkflow
	default:
		return workerWorkflow
	}
}
