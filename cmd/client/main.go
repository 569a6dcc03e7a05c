/**
 * @description
 * This is the interactive CLI for the payment network. It talks to the gateway
 * only: authentication, balance checks, deposits, withdrawals, cross-bank
 * transfers and statements for clients; account creation and balance top-ups
 * for the admin.
 */

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Vinit2244/Strife/internal/domain"
	"github.com/Vinit2244/Strife/pkg/gatewayclient"
)

const opTimeout = 2 * time.Minute

func main() {
	gatewayURL := flag.String("gateway", envOr("GATEWAY_URL", "http://localhost:8080"), "gateway base URL")
	flag.Parse()

	in := bufio.NewReader(os.Stdin)
	client := gatewayclient.NewClient(*gatewayURL)

	fmt.Println("Welcome to the payment network")
	for {
		fmt.Println("\n1. Login")
		fmt.Println("2. Register existing bank account")
		fmt.Println("3. Exit")
		switch prompt(in, "Choose an option: ") {
		case "1":
			if login(in, client) {
				session(in, client)
			}
		case "2":
			registerClient(in, client)
		case "3":
			return
		default:
			fmt.Println("Unknown option")
		}
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func prompt(in *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}

func promptAmount(in *bufio.Reader) (decimal.Decimal, bool) {
	raw := prompt(in, "Amount: ")
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		fmt.Println("Invalid amount")
		return decimal.Zero, false
	}
	return amount, true
}

func login(in *bufio.Reader, client *gatewayclient.Client) bool {
	username := prompt(in, "Username: ")
	password := prompt(in, "Password: ")

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	resp, err := client.Authenticate(ctx, username, password)
	if err != nil {
		fmt.Printf("Could not reach the gateway: %v\n", err)
		return false
	}
	if resp.ErrCode != 0 {
		fmt.Println(resp.Text)
		return false
	}
	fmt.Printf("Logged in as %s\n", resp.Role)
	return true
}

func registerClient(in *bufio.Reader, client *gatewayclient.Client) {
	username := prompt(in, "Username: ")
	password := prompt(in, "Password: ")
	bankID, err := strconv.ParseInt(prompt(in, "Bank id: "), 10, 64)
	if err != nil {
		fmt.Println("Invalid bank id")
		return
	}
	accNo := prompt(in, "Account number: ")

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	resp, err := client.RegisterClient(ctx, domain.RegisterClientRequest{
		Username:      username,
		Password:      password,
		BankID:        bankID,
		AccountNumber: accNo,
	})
	if err != nil {
		fmt.Printf("Could not reach the gateway: %v\n", err)
		return
	}
	fmt.Println(resp.Text)
}

func session(in *bufio.Reader, client *gatewayclient.Client) {
	if client.Role() == domain.RoleAdmin {
		adminMenu(in, client)
		return
	}
	clientMenu(in, client)
}

func clientMenu(in *bufio.Reader, client *gatewayclient.Client) {
	for {
		fmt.Println("\n1. Check balance")
		fmt.Println("2. Deposit")
		fmt.Println("3. Withdraw")
		fmt.Println("4. Transfer")
		fmt.Println("5. Transaction history")
		fmt.Println("6. Logout")
		switch prompt(in, "Choose an option: ") {
		case "1":
			checkBalance(client)
		case "2":
			moveMoney(in, client, domain.TransferTypeDeposit)
		case "3":
			moveMoney(in, client, domain.TransferTypeWithdraw)
		case "4":
			transfer(in, client)
		case "5":
			history(client)
		case "6":
			return
		default:
			fmt.Println("Unknown option")
		}
	}
}

func checkBalance(client *gatewayclient.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	resp, err := client.CheckBalance(ctx)
	if err != nil {
		fmt.Printf("Could not reach the gateway: %v\n", err)
		return
	}
	if resp.ErrCode != 0 {
		fmt.Println(resp.Text)
		return
	}
	fmt.Printf("Balance: %s\n", resp.Balance)
}

func moveMoney(in *bufio.Reader, client *gatewayclient.Client, kind string) {
	amount, ok := promptAmount(in)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	resp, err := client.TransferAmount(ctx, domain.TransferAmountRequest{
		Amount: amount,
		Type:   kind,
	})
	if err != nil {
		fmt.Printf("Could not reach the gateway: %v\n", err)
		return
	}
	if resp.ErrCode != 0 {
		fmt.Println(resp.Text)
		return
	}
	fmt.Printf("%s. Balance: %s\n", resp.Text, resp.Balance)
}

func transfer(in *bufio.Reader, client *gatewayclient.Client) {
	receiver := prompt(in, "Receiver username: ")
	bankID, err := strconv.ParseInt(prompt(in, "Receiver bank id: "), 10, 64)
	if err != nil {
		fmt.Println("Invalid bank id")
		return
	}
	accNo := prompt(in, "Receiver account number: ")
	amount, ok := promptAmount(in)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	resp, err := client.TransferAmount(ctx, domain.TransferAmountRequest{
		ReceiverUsername: receiver,
		ReceiverBankID:   bankID,
		ReceiverAccNo:    accNo,
		Amount:           amount,
		Type:             domain.TransferTypeTransfer,
	})
	if err != nil {
		fmt.Printf("Could not reach the gateway: %v\n", err)
		return
	}
	if resp.ErrCode != 0 {
		fmt.Println(resp.Text)
		return
	}
	fmt.Printf("%s. Balance: %s\n", resp.Text, resp.Balance)
}

func history(client *gatewayclient.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	resp, err := client.GetTransactionHistory(ctx)
	if err != nil {
		fmt.Printf("Could not reach the gateway: %v\n", err)
		return
	}
	if resp.ErrCode != 0 {
		fmt.Println(resp.Text)
		return
	}
	if len(resp.Transactions) == 0 {
		fmt.Println("No transactions yet")
		return
	}
	for _, tx := range resp.Transactions {
		fmt.Println(tx.String())
	}
}

func adminMenu(in *bufio.Reader, client *gatewayclient.Client) {
	for {
		fmt.Println("\n1. Create client account")
		fmt.Println("2. Add balance to client account")
		fmt.Println("3. Logout")
		switch prompt(in, "Choose an option: ") {
		case "1":
			adminCreateClient(in, client)
		case "2":
			adminAddBalance(in, client)
		case "3":
			return
		default:
			fmt.Println("Unknown option")
		}
	}
}

func adminCreateClient(in *bufio.Reader, client *gatewayclient.Client) {
	username := prompt(in, "New client username: ")
	password := prompt(in, "New client password: ")
	bankID, err := strconv.ParseInt(prompt(in, "Bank id: "), 10, 64)
	if err != nil {
		fmt.Println("Invalid bank id")
		return
	}
	balance, err := decimal.NewFromString(prompt(in, "Initial balance: "))
	if err != nil || balance.IsNegative() {
		fmt.Println("Invalid initial balance")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	resp, err := client.AdminCreateClient(ctx, domain.AdminCreateClientRequest{
		NewClientUsername: username,
		NewClientPassword: password,
		NewClientBankID:   bankID,
		InitialBalance:    balance,
	})
	if err != nil {
		fmt.Printf("Could not reach the gateway: %v\n", err)
		return
	}
	if resp.ErrCode != 0 {
		fmt.Println(resp.Text)
		return
	}
	fmt.Printf("%s. Account number: %s\n", resp.Text, resp.AccountNumber)
}

func adminAddBalance(in *bufio.Reader, client *gatewayclient.Client) {
	username := prompt(in, "Client username: ")
	bankID, err := strconv.ParseInt(prompt(in, "Bank id: "), 10, 64)
	if err != nil {
		fmt.Println("Invalid bank id")
		return
	}
	amount, ok := promptAmount(in)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	resp, err := client.AdminAddBalance(ctx, domain.AdminAddBalanceRequest{
		Username: username,
		BankID:   bankID,
		Amount:   amount,
	})
	if err != nil {
		fmt.Printf("Could not reach the gateway: %v\n", err)
		return
	}
	fmt.Println(resp.Text)
}
