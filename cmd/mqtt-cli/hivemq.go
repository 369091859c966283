package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/nerrad567/mqtt-cli/internal/infrastructure/datahub"
	"github.com/nerrad567/mqtt-cli/internal/output"
	"github.com/nerrad567/mqtt-cli/internal/tasks"
)

// hubFlags select the Data Hub endpoint for every hivemq subcommand.
type hubFlags struct {
	url  string
	rate float64
}

func newHiveMQCmd(a *app) *cobra.Command {
	hub := &hubFlags{}

	cmd := &cobra.Command{
		Use:   "hivemq",
		Short: "Manage HiveMQ Data Hub policies, schemas and scripts",
	}
	cmd.PersistentFlags().StringVarP(&hub.url, "url", "u", "http://localhost:8888", "HiveMQ REST API URL")
	cmd.PersistentFlags().Float64VarP(&hub.rate, "rate", "r", 1500, "maximum requests per second")

	cmd.AddCommand(
		newDataPolicyCmd(a, hub),
		newBehaviorPolicyCmd(a, hub),
		newSchemaCmd(a, hub),
		newScriptCmd(a, hub),
	)
	return cmd
}

// hubClient resolves the Data Hub client from config and flags.
func (a *app) hubClient(cmd *cobra.Command, hub *hubFlags) (*datahub.Client, *output.Formatter, error) {
	url := a.cfg.DataHub.URL
	if cmd.Flags().Changed("url") {
		url = hub.url
	}
	rate := a.cfg.DataHub.RateLimit
	if cmd.Flags().Changed("rate") {
		rate = hub.rate
	}
	if rate <= 0 {
		return nil, nil, usageError("--rate must be greater than 0")
	}

	client, err := a.hub.Client(url, rate)
	if err != nil {
		if errors.Is(err, datahub.ErrInvalidConfig) {
			return nil, nil, usageError("%v", err)
		}
		return nil, nil, failure(err)
	}
	a.log.Trace("data hub client", "url", client.BaseURL(), "rate", client.Rate())
	return client, a.formatter(), nil
}

// resultError maps a task result to the command error.
func resultError(res tasks.Result) error {
	if res.OK() {
		return nil
	}
	return reported()
}

// sourceFlags are --definition and --file on create commands.
type sourceFlags struct {
	definition string
	file       string
}

func (f *sourceFlags) register(cmd *cobra.Command, what string) {
	cmd.Flags().StringVar(&f.definition, "definition", "", what+" definition")
	cmd.Flags().StringVar(&f.file, "file", "", "path to a file containing the "+what+" definition")
	cmd.MarkFlagsMutuallyExclusive("definition", "file")
	cmd.MarkFlagsOneRequired("definition", "file")
}

func (f *sourceFlags) source(cmd *cobra.Command) tasks.Source {
	return tasks.Source{
		Definition:    f.definition,
		HasDefinition: cmd.Flags().Changed("definition"),
		File:          f.file,
	}
}

// hubCommand builds a hivemq leaf command that runs one task.
func hubCommand(a *app, hub *hubFlags, use, short string, run func(ctx context.Context, cmd *cobra.Command, client *datahub.Client, out *output.Formatter) tasks.Result) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, out, err := a.hubClient(cmd, hub)
			if err != nil {
				return err
			}
			return resultError(run(cmd.Context(), cmd, client, out))
		},
	}
}

// idFlag adds the required -i/--id flag.
func idFlag(cmd *cobra.Command, id *string, what string) *cobra.Command {
	cmd.Flags().StringVarP(id, "id", "i", "", what+" id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

// =============================================================================
// Data policies
// =============================================================================

func newDataPolicyCmd(a *app, hub *hubFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "data-policy",
		Aliases: []string{"policy"},
		Short:   "Manage data policies",
	}

	var src sourceFlags
	create := hubCommand(a, hub, "create", "Create a data policy", func(ctx context.Context, cmd *cobra.Command, c *datahub.Client, out *output.Formatter) tasks.Result {
		return tasks.NewDataPolicies(c, out).Create(ctx, src.source(cmd))
	})
	src.register(create, "policy")

	var getID string
	get := idFlag(hubCommand(a, hub, "get", "Get a data policy", func(ctx context.Context, _ *cobra.Command, c *datahub.Client, out *output.Formatter) tasks.Result {
		return tasks.NewDataPolicies(c, out).Get(ctx, getID)
	}), &getID, "policy")

	var filter datahub.DataPolicyFilter
	list := hubCommand(a, hub, "list", "List data policies", func(ctx context.Context, _ *cobra.Command, c *datahub.Client, out *output.Formatter) tasks.Result {
		return tasks.NewDataPolicies(c, out).List(ctx, filter)
	})
	list.Flags().StringVarP(&filter.Topic, "topic", "t", "", "list only policies that match a topic")
	list.Flags().StringArrayVarP(&filter.PolicyIDs, "id", "i", nil, "filter by policy id (repeatable)")
	list.Flags().StringArrayVarP(&filter.SchemaIDs, "schema-id", "s", nil, "filter by policies containing a schema id (repeatable)")

	var deleteID string
	del := idFlag(hubCommand(a, hub, "delete", "Delete a data policy", func(ctx context.Context, _ *cobra.Command, c *datahub.Client, out *output.Formatter) tasks.Result {
		return tasks.NewDataPolicies(c, out).Delete(ctx, deleteID)
	}), &deleteID, "policy")

	cmd.AddCommand(create, get, list, del)
	return cmd
}

// =============================================================================
// Behavior policies
// =============================================================================

func newBehaviorPolicyCmd(a *app, hub *hubFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "behavior-policy",
		Short: "Manage behavior policies",
	}

	var src sourceFlags
	create := hubCommand(a, hub, "create", "Create a behavior policy", func(ctx context.Context, cmd *cobra.Command, c *datahub.Client, out *output.Formatter) tasks.Result {
		return tasks.NewBehaviorPolicies(c, out).Create(ctx, src.source(cmd))
	})
	src.register(create, "policy")

	var getID string
	get := idFlag(hubCommand(a, hub, "get", "Get a behavior policy", func(ctx context.Context, _ *cobra.Command, c *datahub.Client, out *output.Formatter) tasks.Result {
		return tasks.NewBehaviorPolicies(c, out).Get(ctx, getID)
	}), &getID, "policy")

	var filter datahub.BehaviorPolicyFilter
	list := hubCommand(a, hub, "list", "List behavior policies", func(ctx context.Context, _ *cobra.Command, c *datahub.Client, out *output.Formatter) tasks.Result {
		return tasks.NewBehaviorPolicies(c, out).List(ctx, filter)
	})
	list.Flags().StringArrayVarP(&filter.PolicyIDs, "id", "i", nil, "filter by policy id (repeatable)")
	list.Flags().StringArrayVarP(&filter.ClientIDs, "client-id", "c", nil, "filter by client id (repeatable)")

	var deleteID string
	del := idFlag(hubCommand(a, hub, "delete", "Delete a behavior policy", func(ctx context.Context, _ *cobra.Command, c *datahub.Client, out *output.Formatter) tasks.Result {
		return tasks.NewBehaviorPolicies(c, out).Delete(ctx, deleteID)
	}), &deleteID, "policy")

	cmd.AddCommand(create, get, list, del)
	return cmd
}

// =============================================================================
// Schemas
// =============================================================================

func newSchemaCmd(a *app, hub *hubFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Manage schemas",
	}

	var (
		req tasks.SchemaRequest
		src sourceFlags
	)
	create := idFlag(hubCommand(a, hub, "create", "Create a schema", func(ctx context.Context, cmd *cobra.Command, c *datahub.Client, out *output.Formatter) tasks.Result {
		s := req
		s.Source = src.source(cmd)
		return tasks.NewSchemas(c, out).Create(ctx, s)
	}), &req.ID, "schema")
	create.Flags().StringVar(&req.Type, "type", "json", "schema type, json or protobuf")
	create.Flags().StringVar(&req.MessageType, "message-type", "", "protobuf message type")
	create.Flags().BoolVar(&req.AllowUnknownFields, "allow-unknown", false, "allow unknown protobuf fields")
	src.register(create, "schema")

	var getID string
	get := idFlag(hubCommand(a, hub, "get", "Get a schema", func(ctx context.Context, _ *cobra.Command, c *datahub.Client, out *output.Formatter) tasks.Result {
		return tasks.NewSchemas(c, out).Get(ctx, getID)
	}), &getID, "schema")

	var filter datahub.SchemaFilter
	list := hubCommand(a, hub, "list", "List schemas", func(ctx context.Context, _ *cobra.Command, c *datahub.Client, out *output.Formatter) tasks.Result {
		return tasks.NewSchemas(c, out).List(ctx, filter)
	})
	list.Flags().StringArrayVarP(&filter.Types, "type", "t", nil, "filter by schema type (repeatable)")
	list.Flags().StringArrayVarP(&filter.SchemaIDs, "id", "i", nil, "filter by schema id (repeatable)")

	var deleteID string
	del := idFlag(hubCommand(a, hub, "delete", "Delete a schema", func(ctx context.Context, _ *cobra.Command, c *datahub.Client, out *output.Formatter) tasks.Result {
		return tasks.NewSchemas(c, out).Delete(ctx, deleteID)
	}), &deleteID, "schema")

	cmd.AddCommand(create, get, list, del)
	return cmd
}

// =============================================================================
// Scripts
// =============================================================================

func newScriptCmd(a *app, hub *hubFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "script",
		Short: "Manage scripts",
	}

	var (
		req tasks.ScriptRequest
		src sourceFlags
	)
	create := idFlag(hubCommand(a, hub, "create", "Create a script", func(ctx context.Context, cmd *cobra.Command, c *datahub.Client, out *output.Formatter) tasks.Result {
		s := req
		s.Source = src.source(cmd)
		return tasks.NewScripts(c, out).Create(ctx, s)
	}), &req.ID, "script")
	create.Flags().StringVar(&req.FunctionType, "type", "transformation", "script function type")
	create.Flags().StringVar(&req.Description, "description", "", "script description")
	src.register(create, "script")

	var getID string
	get := idFlag(hubCommand(a, hub, "get", "Get a script", func(ctx context.Context, _ *cobra.Command, c *datahub.Client, out *output.Formatter) tasks.Result {
		return tasks.NewScripts(c, out).Get(ctx, getID)
	}), &getID, "script")

	var filter datahub.ScriptFilter
	list := hubCommand(a, hub, "list", "List scripts", func(ctx context.Context, _ *cobra.Command, c *datahub.Client, out *output.Formatter) tasks.Result {
		return tasks.NewScripts(c, out).List(ctx, filter)
	})
	list.Flags().StringArrayVarP(&filter.ScriptIDs, "id", "i", nil, "filter by script id (repeatable)")
	list.Flags().StringArrayVarP(&filter.FunctionTypes, "type", "t", nil, "filter by function type (repeatable)")

	var deleteID string
	del := idFlag(hubCommand(a, hub, "delete", "Delete a script", func(ctx context.Context, _ *cobra.Command, c *datahub.Client, out *output.Formatter) tasks.Result {
		return tasks.NewScripts(c, out).Delete(ctx, deleteID)
	}), &deleteID, "script")

	cmd.AddCommand(create, get, list, del)
	return cmd
}
