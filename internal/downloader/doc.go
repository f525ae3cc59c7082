// Package downloader runs the episode download pipeline.
//
// Every record read from the key file becomes one item. At most
// download.concurrency items are active at a time. Each active item opens a
// page in the shared browser, loads the episode URL, waits for the network to
// settle, runs the external downloader for the item's key, and closes its page.
// A failure in one item is logged and recorded without affecting the others.
package downloader
