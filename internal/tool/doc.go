// Package tool holds the client-side tools the backend may invoke during an
// agent turn, plus the registry that names them.
//
// Tools run locally: they edit files, create files, or run terminal commands,
// then report what they did back into the chat history through the
// ContextProvider capability the session supplies. Tool enablement and
// confirmation copy come from a TOML manifest so deployments can turn
// individual tools off without a rebuild.
package tool
