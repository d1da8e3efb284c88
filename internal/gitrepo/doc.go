// Package gitrepo answers the version control questions a release run asks of a checkout:
// which commit is checked out, which tags exist, whether the working tree is clean, and
// how to fetch and switch to another revision.
//
// RepositoryManager drives the git executable through execshell. NativeRepositoryManager
// performs the same operations in-process with go-git. Both satisfy
// shared.GitRepositoryManager.
package gitrepo
