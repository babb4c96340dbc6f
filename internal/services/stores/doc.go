// Package stores talks to the archive data store over its file web
// service. Files live under ARCHIVE/file_id; the store identifies content
// by hex MD5 digest and accepts uploads only with a matching Content-MD5.
package stores
