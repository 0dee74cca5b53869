package main

import (
	"fmt"

	"github.com/d2verb/difyctl/internal/ui"
)

type TasksCmd struct {
	List       TasksListCmd       `cmd:"" default:"withargs" help:"List install tasks"`
	Show       TasksShowCmd       `cmd:"" help:"Show one install task"`
	Delete     TasksDeleteCmd     `cmd:"" help:"Delete an install task"`
	DeleteAll  TasksDeleteAllCmd  `cmd:"" name:"delete-all" help:"Delete all install task items"`
	DeleteItem TasksDeleteItemCmd `cmd:"" name:"delete-item" help:"Delete one plugin from an install task"`
}

type TasksListCmd struct {
	Page     int  `help:"Page number." default:"1"`
	PageSize int  `help:"Page size." default:"256"`
	JSON     bool `help:"Print tasks as JSON."`
}

func (c *TasksListCmd) Run(app *App) error {
	cl, tenant, err := app.Session()
	if err != nil {
		return err
	}

	tasks, err := cl.FetchInstallationTasks(app.ctx, tenant, c.Page, c.PageSize)
	if err != nil {
		return err
	}
	if c.JSON {
		return ui.PrintJSON(tasks)
	}
	ui.PrintTaskList(tasks)
	return nil
}

type TasksShowCmd struct {
	TaskID string `arg:"" help:"Install task ID."`
	Wait   bool   `help:"Wait for the task to finish."`
}

func (c *TasksShowCmd) Run(app *App) error {
	cl, tenant, err := app.Session()
	if err != nil {
		return err
	}

	if c.Wait {
		task, err := waitForTask(app.ctx, cl, tenant, c.TaskID, defaultPollInterval)
		if err != nil {
			return err
		}
		return reportTask(task)
	}

	task, err := cl.FetchInstallationTask(app.ctx, tenant, c.TaskID)
	if err != nil {
		return err
	}
	ui.PrintTask(*task)
	return nil
}

type TasksDeleteCmd struct {
	TaskID string `arg:"" help:"Install task ID."`
}

func (c *TasksDeleteCmd) Run(app *App) error {
	cl, tenant, err := app.Session()
	if err != nil {
		return err
	}

	ok, err := cl.DeleteInstallationTask(app.ctx, tenant, c.TaskID)
	if err != nil {
		return err
	}
	return reportDeleted(ok, fmt.Sprintf("task '%s'", c.TaskID))
}

type TasksDeleteAllCmd struct {
	Yes bool `short:"y" help:"Do not ask for confirmation."`
}

func (c *TasksDeleteAllCmd) Run(app *App) error {
	cl, tenant, err := app.Session()
	if err != nil {
		return err
	}

	if !c.Yes && !promptConfirm(fmt.Sprintf("Delete all install task items of tenant %s?", tenant)) {
		ui.PrintInfo("Cancelled.")
		return nil
	}

	ok, err := cl.DeleteAllInstallationTaskItems(app.ctx, tenant)
	if err != nil {
		return err
	}
	return reportDeleted(ok, "all install task items")
}

type TasksDeleteItemCmd struct {
	TaskID     string `arg:"" help:"Install task ID."`
	Identifier string `arg:"" help:"Plugin unique identifier within the task."`
}

func (c *TasksDeleteItemCmd) Run(app *App) error {
	cl, tenant, err := app.Session()
	if err != nil {
		return err
	}

	ok, err := cl.DeleteInstallationTaskItem(app.ctx, tenant, c.TaskID, c.Identifier)
	if err != nil {
		return err
	}
	return reportDeleted(ok, fmt.Sprintf("'%s' from task '%s'", c.Identifier, c.TaskID))
}

func reportDeleted(ok bool, what string) error {
	if !ok {
		return &ExitError{Code: exitDaemonError, Message: fmt.Sprintf("Daemon did not delete %s.", what)}
	}
	ui.PrintSuccess(fmt.Sprintf("Deleted %s", what))
	return nil
}
