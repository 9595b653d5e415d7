package main

// General API documentation for swaggo. Run `make swagger-gen` to regenerate docs/.
//
// @title           medchatd API
// @version         1.0
// @description     Streaming, profile-aware health chat backed by a local LLM.
//
// @contact.name   medchatd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
