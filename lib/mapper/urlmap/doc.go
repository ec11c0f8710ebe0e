// Package urlmap is the url shortener domain: a UrlMap associates a short key
// with a target url. The entities are stored in the url_maps table through
// sqlmapper, NewMapper adds validation of keys and urls on write.
package urlmap
