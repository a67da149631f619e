/*
 * Copyright © 2026 Tidemark Systems Inc., All rights reserved.
 */

// Package dynamo implements backend.Store on AWS DynamoDB. Point operations
// use the item APIs with conditional expressions for create/replace
// semantics; queries are translated to PartiQL statements with positional
// parameters, paging through ExecuteStatement next tokens. SDK errors are
// classified onto the engine's status taxonomy so callers can tell
// retryable throttling from terminal failures.
package dynamo
