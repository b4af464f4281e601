// Package pgschema serves the schema of a PostgreSQL database to AI agents
// through the Model Context Protocol (MCP). It never runs caller-supplied SQL
// and never mutates the database: every pooled session is opened with
// default_transaction_read_only and only the fixed information_schema
// queries of [PoolCatalog] are executed.
//
// Three pieces cooperate. A [Catalog] reads column metadata. [RenderDDL]
// turns it into deterministic CREATE TABLE statements. A [Router] maps the
// fixed MCP operations (list and read resources, list and call tools, list
// and get prompts, complete) onto the two.
//
// # Library Usage
//
//	config, err := pgschema.LoadConfig(".env")
//	if err != nil {
//		log.Fatal(err)
//	}
//	catalog, err := pgschema.NewPoolCatalog(ctx, *config, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer catalog.Close()
//
//	base, err := pgschema.NewBaseURL(config.DatabaseURL)
//	if err != nil {
//		log.Fatal(err)
//	}
//	router := pgschema.NewRouter(catalog, base, logger, pgschema.WithSecrets(catalog.Password()))
//
//	// Use directly
//	resp, err := router.Dispatch(ctx, pgschema.Request{
//		Op:        pgschema.OpCallTool,
//		Name:      pgschema.SchemaToolName,
//		Arguments: map[string]string{"mode": "specific", "tableName": "orders"},
//	})
//
//	// Or serve it over MCP
//	mcpServer, err := pgschema.NewMCPServer(router, "postgres-context-server", version, nil, logger)
//	err = server.NewStdioServer(mcpServer).Listen(ctx, os.Stdin, os.Stdout)
//
// # Resources
//
// Each table of schema public is one resource at
// postgres://host[:port]/<table>/schema. The URI never carries the user or
// password of the connection string. Reading it returns the table's column
// names and data types as a JSON array.
package pgschema
