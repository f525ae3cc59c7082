// Package main hosts the reelkey CLI entrypoint and command graph.
//
// `reelkey harvest` scrapes player keys for an episode range and writes the
// key file plus a standalone download script. `reelkey download` reads the key
// file back and drives a shared headless browser and the external downloader
// for every episode. The remaining commands inspect the key file, regenerate
// the script, check the environment, browse run history, and scaffold
// configuration.
//
// Keep this package lean: pipelines live in internal packages and the commands
// here only wire configuration, logging, locking, and history around them.
package main
