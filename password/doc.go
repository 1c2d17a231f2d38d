// Package password hashes and checks the passwords held by the fake API in
// authtest.
//
// Hashes are Argon2id in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [CheckPolicy] applies the server's password rules (length, letter case,
// digits). The client never hashes passwords; it only forwards them.
package password
