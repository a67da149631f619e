/*
 * Copyright © 2026 Tidemark Systems Inc., All rights reserved.
 */

// Package config loads the engine's deployment configuration: backend
// connection, validation ceilings, logging and the set of served document
// models. Configuration is YAML; credentials come from the environment so
// they never land in checked-in files.
package config
