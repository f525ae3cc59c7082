// Package browser drives one shared headless Chromium instance over the
// DevTools protocol.
//
// A Chrome handle is launched once per download batch. Each episode opens its
// own Page (a browser tab), navigates to the episode URL, waits for network
// traffic to settle so the player embed registers the stream with the host,
// and closes the tab when the item finishes. Tabs are independent, so pages
// may be opened and closed from many goroutines at once.
package browser
