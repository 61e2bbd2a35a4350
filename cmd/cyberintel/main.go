package main

import (
	"context"

	"cyberintel-backend/cmd/cyberintel/commands"
	"cyberintel-backend/lib/serviceutil"
	"cyberintel-backend/lib/telemetry"
)

func main() {
	telemetry.InitSlog(true)
	err := telemetry.SetupFromEnv(context.Background(), "cyberintel")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	commands.ExecuteContext(context.Background())
}
