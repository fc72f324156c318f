// Package native implements socket.Platform on the host operating system.
//
// On unix hosts descriptors are real kernel sockets created through
// golang.org/x/sys/unix. They are blocking and marked close-on-exec while
// syscall.ForkLock is held, so a concurrent fork never inherits them. On
// other hosts every call fails with abi.ENOTSUP.
package native
