package main

// Store backend blank imports: each import activates a self-registering
// adapter selectable with storage.backend.

import (
	_ "github.com/Strob0t/taskboard/internal/adapter/dynamodb"
	_ "github.com/Strob0t/taskboard/internal/adapter/memory"
	_ "github.com/Strob0t/taskboard/internal/adapter/natskv"
	_ "github.com/Strob0t/taskboard/internal/adapter/postgres"
	_ "github.com/Strob0t/taskboard/internal/adapter/redis"
	_ "github.com/Strob0t/taskboard/internal/adapter/sqlite"
)
