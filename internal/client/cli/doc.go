// Package cli is the interactive terminal front end of whisperbox.
//
// After login a background goroutine keeps an arrivals stream open and
// prints every incoming message; its position is saved locally so a
// restart does not replay history already seen.
//
// Commands
//
//	register                 create an account
//	login                    authenticate
//	logout                   forget the local session
//	contacts <query>         search users by email
//	open <user-id>           select a conversation and show its history
//	send <text>              send to the open conversation
//	history                  show the open conversation again
//	chats                    list conversations, newest first
//	check                    verify both copies of the open conversation
//	help                     show available commands
//	exit | quit              leave the program
package cli
