package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

type uploadCmd struct {
	*root
	fs   *flag.FlagSet
	file string
}

func (c *uploadCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func parseUploadCmd(args []string, r *root) (*uploadCmd, error) {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	c := &uploadCmd{root: r, fs: fs}
	fs.StringVar(&c.file, "file", "", "NIfTI volume to upload (.nii)")
	if err := parseFlags(fs, c, args); err != nil {
		return nil, err
	}
	if c.file == "" {
		if fs.NArg() != 1 {
			return nil, usageErrorf(c, "upload needs -file")
		}
		c.file = fs.Arg(0)
	}
	return c, nil
}

func (c *uploadCmd) Run() error {
	client, err := c.client()
	if err != nil {
		return err
	}
	ctx, cancel := c.context()
	defer cancel()
	res, err := client.UploadFile(ctx, c.file)
	if err != nil {
		return err
	}
	return printJSON(c.stdout, res)
}

type predictCmd struct {
	*root
	fs     *flag.FlagSet
	target sessionFlags
	output string
	save   bool
}

func (c *predictCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func parsePredictCmd(args []string, r *root) (*predictCmd, error) {
	fs := flag.NewFlagSet("predict", flag.ContinueOnError)
	c := &predictCmd{root: r, fs: fs}
	c.target.register(fs)
	fs.StringVar(&c.output, "output", "", "PNG file for the overlay (default <volume>-<slice>-predict.png in save_dir)")
	fs.BoolVar(&c.save, "save", false, "also save the prediction to your profile")
	if err := parseFlags(fs, c, args); err != nil {
		return nil, err
	}
	if err := c.target.session().Validate(); err != nil {
		return nil, usageErrorf(c, "%v", err)
	}
	return c, nil
}

func (c *predictCmd) Run() error {
	client, err := c.client()
	if err != nil {
		return err
	}
	ctx, cancel := c.context()
	defer cancel()
	s := c.target.session()
	data, err := client.Predict(ctx, s.VolumeID, s.Slice)
	if err != nil {
		return err
	}
	path := c.output
	if path == "" {
		s.VolumeID += "-predict"
		path = c.defaultOutput(s, "png")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	fmt.Fprintln(c.stdout, path)
	if !c.save {
		return nil
	}
	s = c.target.session()
	photo, err := client.SavePhoto(ctx, s.VolumeID, s.Slice)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "saved to profile as %s\n", photo.UUID)
	return nil
}

type profileCmd struct {
	*root
	fs *flag.FlagSet
}

func (c *profileCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func parseProfileCmd(args []string, r *root) (*profileCmd, error) {
	fs := flag.NewFlagSet("profile", flag.ContinueOnError)
	c := &profileCmd{root: r, fs: fs}
	if err := parseFlags(fs, c, args); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *profileCmd) Run() error {
	client, err := c.client()
	if err != nil {
		return err
	}
	ctx, cancel := c.context()
	defer cancel()
	p, err := client.Profile(ctx)
	if err != nil {
		return err
	}
	return printJSON(c.stdout, p)
}

type loginCmd struct {
	*root
	fs       *flag.FlagSet
	email    string
	password string

	in io.Reader
}

func (c *loginCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func parseLoginCmd(args []string, r *root) (*loginCmd, error) {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	c := &loginCmd{root: r, fs: fs, in: os.Stdin}
	fs.StringVar(&c.email, "email", "", "account email")
	fs.StringVar(&c.password, "password", "", "account password (prompted for when omitted)")
	if err := parseFlags(fs, c, args); err != nil {
		return nil, err
	}
	if c.email == "" {
		return nil, usageErrorf(c, "login needs -email")
	}
	return c, nil
}

func (c *loginCmd) Run() error {
	if c.password == "" {
		pw, err := c.readPassword(c.in)
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		c.password = pw
	}
	client, err := c.client()
	if err != nil {
		return err
	}
	ctx, cancel := c.context()
	defer cancel()
	if err := client.Login(ctx, c.email, c.password); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "logged in to %s as %s\n", client.BaseURL(), c.email)
	return nil
}

// readPassword reads without echo from a terminal, otherwise one line of
// input.
func (r *root) readPassword(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(r.stderr, "Password: ")
		pw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(r.stderr)
		if err != nil {
			return "", err
		}
		return string(pw), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

type registerCmd struct {
	*root
	fs       *flag.FlagSet
	name     string
	email    string
	password string

	in io.Reader
}

func (c *registerCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func parseRegisterCmd(args []string, r *root) (*registerCmd, error) {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	c := &registerCmd{root: r, fs: fs, in: os.Stdin}
	fs.StringVar(&c.name, "name", "", "display name")
	fs.StringVar(&c.email, "email", "", "account email")
	fs.StringVar(&c.password, "password", "", "account password (prompted for when omitted)")
	if err := parseFlags(fs, c, args); err != nil {
		return nil, err
	}
	if c.name == "" || c.email == "" {
		return nil, usageErrorf(c, "register needs -name and -email")
	}
	return c, nil
}

func (c *registerCmd) Run() error {
	if c.password == "" {
		pw, err := c.readPassword(c.in)
		if err != nil {
			return fmt.Errorf("register: %w", err)
		}
		c.password = pw
	}
	client, err := c.client()
	if err != nil {
		return err
	}
	ctx, cancel := c.context()
	defer cancel()
	if err := client.Register(ctx, c.name, c.email, c.password); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "registered and logged in to %s as %s\n", client.BaseURL(), c.email)
	return nil
}

type logoutCmd struct {
	*root
	fs *flag.FlagSet
}

func (c *logoutCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func parseLogoutCmd(args []string, r *root) (*logoutCmd, error) {
	fs := flag.NewFlagSet("logout", flag.ContinueOnError)
	c := &logoutCmd{root: r, fs: fs}
	if err := parseFlags(fs, c, args); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *logoutCmd) Run() error {
	client, err := c.client()
	if err != nil {
		return err
	}
	ctx, cancel := c.context()
	defer cancel()
	if err := client.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, "logged out")
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
