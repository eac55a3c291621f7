package core

// Hook interfaces for model lifecycle events
type BeforeInserter interface{ BeforeInsert() error }
type AfterInserter interface{ AfterInsert(id int64) error }
type BeforeUpdater interface{ BeforeUpdate() error }
type AfterUpdater interface{ AfterUpdate() error }
type AfterFinder interface{ AfterFind() error }
