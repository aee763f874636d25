/*
Package session serializes access to conversation checkpoints.

A Manager guarantees that two turns of the same session never run at the same
time, within one process through ref-counted mutexes and across replicas
through an optional distributed locker. Different sessions never contend.
*/
package session
