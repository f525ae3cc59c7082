// Package abyssdl wraps the external abyss-dl downloader.
//
// The downloader is a Java program invoked once per episode as
// `<command...> <key> <quality> -o <output>`. It only succeeds after a browser
// has visited the episode page, so callers run it while the page is still open.
// Stdout is streamed to debug logs; the tail of stderr is kept and attached to
// the returned error when the process exits non-zero.
package abyssdl
