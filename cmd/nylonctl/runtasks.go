package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nylonring/corert/internal/cmdbuf"
	"github.com/nylonring/corert/internal/task"
)

// newRunTasksCmd demonstrates the task subsystem end to end without
// requiring any plugin to be loaded: it spins up a WorkerGroup sized
// per the host config, compiles a tiny command buffer (--count
// parallel tasks, 3 by default, behind a barrier, then a finisher task
// that only runs once all of them have completed), dispatches it, and
// prints the resulting completion status.
func newRunTasksCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "run-tasks",
		Short: "run a demo command buffer against an in-process task scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadHostConfig(configPath)
			if err != nil {
				return err
			}

			stacks := task.NewStackAllocator(cfg.Workers*4, 32*1024)
			mgr := task.NewManager(stacks)
			workers := task.NewWorkerGroup(mgr, cfg.Workers)
			workers.Start()
			defer workers.Shutdown()

			executor := cmdbuf.NewExecutor(mgr, workers)

			builder := cmdbuf.NewBuilder()
			for i := 0; i < count; i++ {
				n := i
				builder.SpawnTask(cmdbuf.TaskSpec{
					Name: fmt.Sprintf("worker-%d", n),
					Prio: n,
					Entry: func(ctx *task.Context) any {
						fmt.Printf("task %d running\n", n)
						return n
					},
				})
			}
			builder.Barrier()
			builder.SpawnTask(cmdbuf.TaskSpec{
				Name: "finisher",
				Entry: func(ctx *task.Context) any {
					fmt.Println("all workers done")
					return nil
				},
			})

			handle := executor.Dispatch(builder.Build())
			status := handle.BlockOn()
			switch status.Kind {
			case cmdbuf.StatusCompleted:
				fmt.Println("command buffer completed")
			case cmdbuf.StatusAborted:
				fmt.Printf("command buffer aborted at command %d\n", status.Index)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 3, "number of parallel tasks to spawn before the barrier")
	return cmd
}
