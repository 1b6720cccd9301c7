package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/matrousse/record-sharing-backend/api"
	"github.com/matrousse/record-sharing-backend/cmd/flags"
	"github.com/matrousse/record-sharing-backend/cryptoutils"
	"github.com/matrousse/record-sharing-backend/interfaces"
	"github.com/matrousse/record-sharing-backend/sharing"
	"github.com/urfave/cli/v2"
)

var ShareServiceLogFlag = flags.LogServiceFlagFn("share-cli")

var PasswordFlag = &cli.StringFlag{
	Name:  "password",
	Usage: "owner password the master key is derived from",
}
var SaltFlag = &cli.StringFlag{
	Name:  "salt",
	Usage: "base64-encoded 16-byte KDF salt",
}
var StudentsFileFlag = &cli.StringFlag{
	Name:  "students",
	Usage: "path to a JSON file holding the student records",
}
var SessionFlag = &cli.StringFlag{
	Name:  "session",
	Usage: "sharing session id",
}
var FragmentFlag = &cli.StringFlag{
	Name:  "fragment",
	Usage: "base64 share key, as carried in the URL fragment",
}
var RecipientFlag = &cli.StringFlag{
	Name:  "recipient",
	Usage: "name of the guest the link is meant for",
}
var TTLHoursFlag = &cli.Int64Flag{
	Name:  "ttl-hours",
	Value: 72,
	Usage: "session lifetime in hours",
}
var BurnFlag = &cli.BoolFlag{
	Name:  "burn",
	Usage: "create the session without a recovery token; guest notes will be irrecoverable by the owner",
}
var StudentFlag = &cli.StringFlag{
	Name:  "student",
	Usage: "student id the note is attached to",
}
var ContentFlag = &cli.StringFlag{
	Name:  "content",
	Usage: "plaintext note content",
}
var AuthorFlag = &cli.StringFlag{
	Name:  "author",
	Usage: "display name of the note author",
}

func main() {
	app := &cli.App{
		Name:  "share-cli",
		Usage: "Create, open, and recover encrypted record shares",
		Flags: append([]cli.Flag{flags.ServerAddrFlag, flags.OwnerFlag, ShareServiceLogFlag}, flags.CommonFlags...),
		Commands: []*cli.Command{
			{
				Name:   "derive-key",
				Usage:  "Derive the master key from a password, generating a salt if none is given",
				Flags:  []cli.Flag{PasswordFlag, SaltFlag},
				Action: runDeriveKey,
			},
			{
				Name:   "create-share",
				Usage:  "Encrypt a student snapshot and create a sharing session",
				Flags:  []cli.Flag{PasswordFlag, SaltFlag, StudentsFileFlag, RecipientFlag, TTLHoursFlag, BurnFlag},
				Action: runCreateShare,
			},
			{
				Name:   "open-share",
				Usage:  "Open a sharing session with its URL fragment",
				Flags:  []cli.Flag{SessionFlag, FragmentFlag},
				Action: runOpenShare,
			},
			{
				Name:   "contribute",
				Usage:  "Add an encrypted guest note to a sharing session",
				Flags:  []cli.Flag{SessionFlag, FragmentFlag, StudentFlag, ContentFlag, AuthorFlag},
				Action: runContribute,
			},
			{
				Name:   "recover",
				Usage:  "Fold guest notes from all sessions back into the owner's records",
				Flags:  []cli.Flag{PasswordFlag, SaltFlag, StudentsFileFlag},
				Action: runRecover,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newManager(cCtx *cli.Context) *sharing.Manager {
	client := &api.Client{
		ServerAddr: cCtx.String(flags.ServerAddrFlag.Name),
		OwnerID:    cCtx.String(flags.OwnerFlag.Name),
	}
	return sharing.NewManager(client, flags.SetupLogger(cCtx))
}

func deriveMaster(cCtx *cli.Context) (cryptoutils.MasterKey, cryptoutils.Salt, error) {
	password := cCtx.String(PasswordFlag.Name)

	var salt cryptoutils.Salt
	var err error
	if encoded := cCtx.String(SaltFlag.Name); encoded != "" {
		raw, decodeErr := base64.StdEncoding.DecodeString(encoded)
		if decodeErr != nil {
			return cryptoutils.MasterKey{}, cryptoutils.Salt{}, fmt.Errorf("could not decode salt: %w", decodeErr)
		}
		salt, err = cryptoutils.NewSalt(raw)
	} else {
		salt, err = cryptoutils.GenerateSalt()
	}
	if err != nil {
		return cryptoutils.MasterKey{}, cryptoutils.Salt{}, err
	}

	master, err := cryptoutils.DeriveMasterKey(password, salt)
	if err != nil {
		return cryptoutils.MasterKey{}, cryptoutils.Salt{}, err
	}
	return master, salt, nil
}

func loadStudents(path string) ([]interfaces.Student, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read students file: %w", err)
	}

	var students []interfaces.Student
	if err := json.Unmarshal(raw, &students); err != nil {
		return nil, fmt.Errorf("could not parse students file: %w", err)
	}
	return students, nil
}

func printJSON(value any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func runDeriveKey(cCtx *cli.Context) error {
	_, salt, err := deriveMaster(cCtx)
	if err != nil {
		return err
	}

	// The key itself stays private; the salt is what the owner must keep
	// alongside the password to re-derive it.
	fmt.Printf("salt: %s\n", base64.StdEncoding.EncodeToString(salt.Bytes()))
	fmt.Println("master key derived successfully")
	return nil
}

func runCreateShare(cCtx *cli.Context) error {
	students, err := loadStudents(cCtx.String(StudentsFileFlag.Name))
	if err != nil {
		return err
	}

	var master *cryptoutils.MasterKey
	if !cCtx.Bool(BurnFlag.Name) {
		derived, _, err := deriveMaster(cCtx)
		if err != nil {
			return err
		}
		master = &derived
	}

	mgr := newManager(cCtx)
	id, shareKey, err := mgr.Create(cCtx.Context, students, master, sharing.CreateOptions{
		RecipientName: cCtx.String(RecipientFlag.Name),
		OwnerID:       cCtx.String(flags.OwnerFlag.Name),
		TTL:           time.Duration(cCtx.Int64(TTLHoursFlag.Name)) * time.Hour,
	})
	if err != nil {
		return err
	}

	fmt.Printf("session: %s\n", id)
	fmt.Printf("fragment: %s\n", shareKey.Fragment())
	return nil
}

func runOpenShare(cCtx *cli.Context) error {
	mgr := newManager(cCtx)

	opened, err := mgr.Open(cCtx.Context, interfaces.SessionID(cCtx.String(SessionFlag.Name)), cCtx.String(FragmentFlag.Name))
	if err != nil {
		return err
	}

	return printJSON(opened.Students)
}

func runContribute(cCtx *cli.Context) error {
	shareKey, err := cryptoutils.ShareKeyFromFragment(cCtx.String(FragmentFlag.Name))
	if err != nil {
		return err
	}

	mgr := newManager(cCtx)
	note, err := mgr.Contribute(cCtx.Context,
		interfaces.SessionID(cCtx.String(SessionFlag.Name)),
		cCtx.String(StudentFlag.Name),
		cCtx.String(ContentFlag.Name),
		shareKey,
		cCtx.String(AuthorFlag.Name))
	if err != nil {
		return err
	}

	fmt.Printf("note: %s\n", note.ID)
	return nil
}

func runRecover(cCtx *cli.Context) error {
	students, err := loadStudents(cCtx.String(StudentsFileFlag.Name))
	if err != nil {
		return err
	}

	master, _, err := deriveMaster(cCtx)
	if err != nil {
		return err
	}

	mgr := newManager(cCtx)
	enriched, err := mgr.EnrichStudents(cCtx.Context, students, master)
	if err != nil {
		return err
	}

	return printJSON(enriched)
}
