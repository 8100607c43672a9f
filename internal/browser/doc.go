// Package browser manages the long-lived browser session used for
// authenticated audio acquisition.
//
// The daemon never launches a browser itself. It attaches to an already
// running Chromium instance over the DevTools protocol, keeps the session
// warm, and periodically exports its cookies to a Netscape-format jar that
// the fetcher hands to yt-dlp. Loss of the browser degrades acquisition but
// never crashes the daemon; the manager reports Degraded and attempts a
// single reattach per access.
package browser
