// Package timeline holds the ordered message list of the open conversation.
//
// Entries are unique by message id and kept in ascending timestamp order;
// entries with equal timestamps keep their insertion order. Every mutation,
// including batch merges, is applied under one lock so readers never observe
// a partial update.
package timeline
