// Package catalog holds the book and user records of the bookshelf and the
// rules that guard them.
//
// Storage is abstracted behind BookStore and UserStore. Lookups that find
// nothing return a nil record and a nil error; errors are reserved for
// failures of the underlying store. Service adds the create/edit/delete
// rules on top of a BookStore, and Identity records first logins in a
// UserStore.
package catalog
