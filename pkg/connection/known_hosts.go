package connection

import (
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// knownHostsCallback builds a strict host key callback backed by the
// OpenSSH known_hosts file at path, used only when host key checking is
// enabled (ANSIBLE_HOST_KEY_CHECKING=true or SetHostKeyChecking(true)).
func knownHostsCallback(path string) (ssh.HostKeyCallback, error) {
	return knownhosts.New(path)
}
