// Package mocks contains mocks for the dispatcher's collaborator interfaces.
package mocks

//go:generate sh -c "go run go.uber.org/mock/mockgen -package mocks -destination session.go github.com/qdemux/qdemux Session && go run golang.org/x/tools/cmd/goimports -w session.go"
//go:generate sh -c "go run go.uber.org/mock/mockgen -package mocks -destination factory.go github.com/qdemux/qdemux SessionFactory && go run golang.org/x/tools/cmd/goimports -w factory.go"
//go:generate sh -c "go run go.uber.org/mock/mockgen -package mocks -destination sender.go github.com/qdemux/qdemux PacketSender && go run golang.org/x/tools/cmd/goimports -w sender.go"
